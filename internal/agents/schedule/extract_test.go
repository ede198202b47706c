package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicflow/orchestrator/pkg/models"
)

func TestExtractRelativeDateTomorrow(t *testing.T) {
	today := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	info := Extract("Quiero agendar para mañana", nil, nil, today)
	assert.Equal(t, "11-12-2024", info.Date)
}

func TestExtractAbsoluteDashDate(t *testing.T) {
	today := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	info := Extract("Quiero una cita el 15-12-2024", nil, nil, today)
	assert.Equal(t, "15-12-2024", info.Date)
}

func TestExtractTreatmentFromTenantKeywords(t *testing.T) {
	durations := map[string]models.TreatmentDuration{
		"limpieza dental": {Minutes: 30, Sessions: 1},
	}
	info := Extract("quiero una limpieza dental la otra semana", nil, durations, time.Now())
	assert.Equal(t, "limpieza dental", info.Treatment)
}

func TestExtractPatientContactFields(t *testing.T) {
	info := Extract("mi nombre es Ana Maria, mi correo es ana@example.com y mi telefono 3001234567", nil, nil, time.Now())
	assert.Equal(t, "Ana Maria", info.PatientName)
	assert.Equal(t, "ana@example.com", info.Email)
	assert.Equal(t, "3001234567", info.Phone)
}
