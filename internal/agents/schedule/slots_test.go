package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicflow/orchestrator/pkg/models"
)

func TestMergeSlotsSessionsTwoDurationSixty(t *testing.T) {
	raw := []string{"09:00", "09:30", "10:00", "10:30"}
	d := models.TreatmentDuration{Minutes: 60, Sessions: 2}

	got := MergeSlots(raw, d)

	assert.Equal(t, []string{"09:00 – 11:00", "09:30 – 11:30"}, got)
}

func TestMergeSlotsSingleSessionExactFit(t *testing.T) {
	raw := []string{"14:00", "14:30"}
	d := models.TreatmentDuration{Minutes: 60, Sessions: 1}

	got := MergeSlots(raw, d)

	assert.Equal(t, []string{"14:00 – 15:00"}, got)
}

func TestMergeSlotsDropsNonConsecutiveRuns(t *testing.T) {
	raw := []string{"09:00", "09:30", "12:00"}
	d := models.TreatmentDuration{Minutes: 60, Sessions: 1}

	got := MergeSlots(raw, d)

	assert.Equal(t, []string{"09:00 – 10:00"}, got)
}

func TestMergeSlotsInsufficientRunYieldsNoCandidates(t *testing.T) {
	raw := []string{"09:00"}
	d := models.TreatmentDuration{Minutes: 60, Sessions: 1}

	got := MergeSlots(raw, d)

	assert.Empty(t, got)
}
