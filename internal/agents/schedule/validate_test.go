package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicflow/orchestrator/pkg/models"
)

func TestValidateMissingTreatmentHasNoAvailabilityRouting(t *testing.T) {
	today := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	cfg := models.TenantConfig{
		TreatmentDurations:    map[string]models.TreatmentDuration{"limpieza": {Minutes: 30, Sessions: 1}},
		RequiredBookingFields: []string{"date", "treatment", "patient_name"},
	}
	info := ExtractedInfo{Date: "11-12-2024"}

	res := Validate(info, cfg, today)

	assert.True(t, res.DateValid)
	assert.False(t, res.TreatmentValid)
	assert.ElementsMatch(t, []string{"treatment", "patient_name"}, res.MissingFields)
}

func TestValidatePastDateIsInvalid(t *testing.T) {
	today := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	cfg := models.TenantConfig{}
	info := ExtractedInfo{Date: "01-12-2024"}

	res := Validate(info, cfg, today)

	assert.False(t, res.DateValid)
}

func TestIsPriceQueryDetectsCostQuestion(t *testing.T) {
	assert.True(t, IsPriceQuery("cuanto cuesta la limpieza?"))
	assert.False(t, IsPriceQuery("quiero agendar una cita"))
}
