package schedule

import (
	"strings"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// ValidationResult is the output of validate_info (§4.K.1).
type ValidationResult struct {
	DateValid      bool
	TreatmentValid bool
	MissingFields  []string
}

// priceQuerySignals flags a question that is asking about cost rather than
// actually trying to book, per §4.K.1's routing heuristic into
// check_availability.
var priceQuerySignals = []string{"cuanto cuesta", "cuánto cuesta", "precio", "how much", "cost"}

// Validate checks extracted fields against the tenant's configuration and
// computes missing_fields from required_booking_fields.
func Validate(info ExtractedInfo, tenant models.TenantConfig, today time.Time) ValidationResult {
	res := ValidationResult{}

	if info.Date != "" {
		if d, err := time.Parse("02-01-2006", info.Date); err == nil {
			res.DateValid = !d.Before(truncateToDay(today))
		}
	}

	if info.Treatment != "" {
		_, res.TreatmentValid = tenant.TreatmentDurations[info.Treatment]
	}

	res.MissingFields = missingFields(info, tenant.RequiredBookingFields)
	return res
}

// IsPriceQuery reports whether the raw question reads as a pricing
// question rather than a booking attempt — such questions never route to
// check_availability even when date and treatment both resolved.
func IsPriceQuery(question string) bool {
	lower := strings.ToLower(question)
	for _, s := range priceQuerySignals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func missingFields(info ExtractedInfo, required []string) []string {
	have := map[string]string{
		"date":         info.Date,
		"treatment":    info.Treatment,
		"patient_name": info.PatientName,
		"national_id":  info.NationalID,
		"email":        info.Email,
		"phone":        info.Phone,
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(have[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
