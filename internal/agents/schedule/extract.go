package schedule

import (
	"regexp"
	"strings"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

var (
	dateDashRe  = regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{4})\b`)
	dateSlashRe = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	emailRe     = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe     = regexp.MustCompile(`\b\+?\d{7,15}\b`)
	nameRe      = regexp.MustCompile(`(?i)(?:me llamo|mi nombre es|my name is)\s+([A-Za-zÀ-ÿ ]{2,60})`)
	idRe        = regexp.MustCompile(`(?i)(?:cedula|cédula|c\.c\.?|national id|id)[:\s]+(\d{5,15})`)
)

// ExtractedInfo is the output of extract_info (§4.K.1).
type ExtractedInfo struct {
	Date         string // DD-MM-YYYY, canonical form, empty if not found
	Treatment    string // key into TenantConfig.TreatmentDurations, empty if not found
	PatientName  string
	NationalID   string
	Email        string
	Phone        string
}

// Extract pulls date, treatment, and patient fields out of the current
// question plus chat history, per §4.K.1's extract_info node.
func Extract(question string, history []models.Message, durations map[string]models.TreatmentDuration, now time.Time) ExtractedInfo {
	text := question
	for _, m := range history {
		text += " " + m.Content
	}

	info := ExtractedInfo{}
	info.Date = extractDate(text, now)
	info.Treatment = extractTreatment(text, durations)
	info.Email = firstMatch(emailRe, text)
	info.Phone = firstMatch(phoneRe, text)
	info.NationalID = firstGroup(idRe, text)
	info.PatientName = strings.TrimSpace(firstGroup(nameRe, text))
	return info
}

// extractDate resolves an absolute or relative date reference to the
// canonical DD-MM-YYYY form. Relative words are Spanish, matching the
// tenant language used across the retrieval pack's Latin-American clinics.
func extractDate(text string, now time.Time) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "pasado mañana") || strings.Contains(lower, "pasado manana"):
		return now.AddDate(0, 0, 2).Format("02-01-2006")
	case strings.Contains(lower, "mañana") || strings.Contains(lower, "manana") || strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1).Format("02-01-2006")
	case strings.Contains(lower, "hoy") || strings.Contains(lower, "today"):
		return now.Format("02-01-2006")
	}

	if m := dateDashRe.FindString(text); m != "" {
		return m
	}
	if m := dateSlashRe.FindStringSubmatch(text); len(m) == 4 {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return ""
}

// extractTreatment matches a known treatment keyword (TenantConfig's
// treatment_durations keys) against the text, case-insensitively.
func extractTreatment(text string, durations map[string]models.TreatmentDuration) string {
	lower := strings.ToLower(text)
	for key := range durations {
		if strings.Contains(lower, strings.ToLower(key)) {
			return key
		}
	}
	return ""
}

func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
