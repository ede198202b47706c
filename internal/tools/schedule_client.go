package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// BookingRequest is the normalized shape CreateBooking accepts regardless
// of backend kind.
type BookingRequest struct {
	Treatment    string
	Date         string
	Time         string
	PatientName  string
	PatientPhone string
}

// BookingResult is what a successful booking returns.
type BookingResult struct {
	EventID      string
	CalendarLink string
}

// ScheduleClient is all HTTP I/O to a tenant's schedule backend, per §4.H
// and the external contracts in §6. Availability calls get a 30s timeout,
// booking calls 60s, matching §5's suspension-point budget.
type ScheduleClient interface {
	// CheckAvailabilityRaw returns the backend's raw HH:MM slot strings,
	// unmerged — schedule.Handler does the slot-window collapsing.
	CheckAvailabilityRaw(ctx context.Context, date, treatment string) ([]string, error)
	CreateBooking(ctx context.Context, req BookingRequest) (BookingResult, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// httpScheduleClient implements ScheduleClient against one tenant's
// schedule_backend, dispatching endpoint shape by backend kind.
type httpScheduleClient struct {
	httpClient *http.Client
	backend    models.ScheduleBackend
	companyID  string
	companyName string
	treatments map[string]models.TreatmentDuration
}

// NewHTTPScheduleClient builds a ScheduleClient for one tenant's backend
// configuration.
func NewHTTPScheduleClient(backend models.ScheduleBackend, companyID, companyName string, treatments map[string]models.TreatmentDuration) ScheduleClient {
	return &httpScheduleClient{
		httpClient:  &http.Client{},
		backend:     backend,
		companyID:   companyID,
		companyName: companyName,
		treatments:  treatments,
	}
}

func (c *httpScheduleClient) CheckAvailabilityRaw(ctx context.Context, date, treatment string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	td := c.treatments[treatment]
	path, payload := c.availabilityRequest(date, treatment, td)

	var resp struct {
		Data struct {
			AvailableSlots []json.RawMessage `json:"available_slots"`
		} `json:"data"`
	}
	if err := c.post(ctx, path, payload, &resp); err != nil {
		return nil, err
	}

	slots := make([]string, 0, len(resp.Data.AvailableSlots))
	for _, raw := range resp.Data.AvailableSlots {
		if s, ok := decodeSlot(raw); ok {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

// decodeSlot accepts either a bare "HH:MM" string or {"time":"HH:MM"},
// matching §6's `[{time:"HH:MM"}|"HH:MM"]` union.
func decodeSlot(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Time string `json:"time"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Time != "" {
		return obj.Time, true
	}
	return "", false
}

func (c *httpScheduleClient) availabilityRequest(date, treatment string, td models.TreatmentDuration) (string, any) {
	switch c.backend.Kind {
	case models.ScheduleBackendGoogleCalendar:
		return "/calendar/availability", map[string]any{
			"date":        date,
			"duration":    td.Minutes,
			"calendar_id": orDefault(td.AgendaID, "primary"),
			"company_id":  c.companyID,
		}
	case models.ScheduleBackendCalendly:
		return "/calendar/availability", map[string]any{
			"date":                date,
			"calendly_event_type": treatment,
			"company_id":          c.companyID,
		}
	case models.ScheduleBackendWebhook:
		return "/webhook", map[string]any{
			"action":     "check_availability",
			"date":       date,
			"treatment":  treatmentPayload(treatment, td),
			"company_id": c.companyID,
		}
	default:
		return "/check-availability", map[string]any{
			"date":       date,
			"treatment":  treatmentPayload(treatment, td),
			"company_id": c.companyID,
		}
	}
}

func treatmentPayload(treatment string, td models.TreatmentDuration) map[string]any {
	return map[string]any{
		"name":      treatment,
		"duration":  td.Minutes,
		"sessions":  td.Sessions,
		"deposit":   td.Deposit,
		"agenda_id": orDefault(td.AgendaID, "default"),
	}
}

func (c *httpScheduleClient) CreateBooking(ctx context.Context, req BookingRequest) (BookingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	path, payload := c.bookingRequest(req)

	var resp struct {
		Success          bool   `json:"success"`
		Response         string `json:"response"`
		Message          string `json:"message"`
		BookingID        string `json:"booking_id"`
		EventID          string `json:"event_id"`
		CalendarLink     string `json:"calendar_link"`
		ConfirmationMail string `json:"confirmation_email"`
	}
	if err := c.post(ctx, path, payload, &resp); err != nil {
		return BookingResult{}, err
	}
	if !resp.Success && resp.EventID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "booking request was not accepted"
		}
		return BookingResult{}, fmt.Errorf("schedule backend: %s", msg)
	}

	result := BookingResult{CalendarLink: resp.CalendarLink}
	if resp.EventID != "" {
		result.EventID = resp.EventID
	} else {
		result.EventID = resp.BookingID
	}
	return result, nil
}

func (c *httpScheduleClient) bookingRequest(req BookingRequest) (string, any) {
	td := c.treatments[req.Treatment]
	patientInfo := map[string]any{
		"name":  req.PatientName,
		"phone": req.PatientPhone,
	}

	switch c.backend.Kind {
	case models.ScheduleBackendGoogleCalendar:
		return "/calendar/book", map[string]any{
			"date":         req.Date,
			"time":         req.Time,
			"duration":     td.Minutes,
			"calendar_id":  orDefault(td.AgendaID, "primary"),
			"company_id":   c.companyID,
			"patient_info": patientInfo,
		}
	case models.ScheduleBackendWebhook:
		return "/webhook", map[string]any{
			"action":       "create_booking",
			"date":         req.Date,
			"time":         req.Time,
			"treatment":    treatmentPayload(req.Treatment, td),
			"company_id":   c.companyID,
			"patient_info": patientInfo,
		}
	default:
		return "/schedule-request", map[string]any{
			"message":          fmt.Sprintf("%s %s", req.Date, req.Time),
			"user_id":          req.PatientPhone,
			"company_id":       c.companyID,
			"company_name":     c.companyName,
			"patient_info":     patientInfo,
			"chat_history":     []map[string]string{},
			"integration_type": string(c.backend.Kind),
		}
	}
}

func (c *httpScheduleClient) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var resp struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/calendar/delete", map[string]any{
		"event_id":   eventID,
		"company_id": c.companyID,
	}, &resp)
}

func (c *httpScheduleClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backend.URL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("schedule backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("schedule backend returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
