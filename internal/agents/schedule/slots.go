package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/clinicflow/orchestrator/pkg/models"
)

const slotStep = 30 // minutes between consecutive raw slots from the backend

// RequiredMinutes returns the booked-window length shown to the user for a
// treatment: duration times session count.
func RequiredMinutes(d models.TreatmentDuration) int {
	sessions := d.Sessions
	if sessions < 1 {
		sessions = 1
	}
	return d.Minutes * sessions
}

// requiredSteps returns how many raw 30-minute slots must be confirmed
// consecutively free before a window is offered. The base treatment
// duration must be fully covered; each additional session beyond the first
// only needs one more slot of continued availability, since later sessions
// in a multi-session treatment are typically confirmed closer to their own
// date rather than booked back-to-back today.
func requiredSteps(d models.TreatmentDuration) int {
	sessions := d.Sessions
	if sessions < 1 {
		sessions = 1
	}
	base := d.Minutes / slotStep
	if d.Minutes%slotStep != 0 {
		base++
	}
	return base + (sessions - 1)
}

// MergeSlots collapses consecutive 30-minute raw slots into bookable
// windows for treatment d, per §4.K.1/§8. Slots are parsed to minutes
// since midnight and sorted numerically, which gives the same order as a
// lexicographic HH:MM comparison for zero-padded 24-hour times.
func MergeSlots(rawSlots []string, d models.TreatmentDuration) []string {
	if len(rawSlots) == 0 {
		return nil
	}

	minutes := make([]int, 0, len(rawSlots))
	for _, s := range rawSlots {
		m, ok := parseHHMM(s)
		if !ok {
			continue
		}
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	steps := requiredSteps(d)
	windowMinutes := RequiredMinutes(d)

	var out []string
	runStart := 0
	for i := 1; i <= len(minutes); i++ {
		brokeRun := i == len(minutes) || minutes[i]-minutes[i-1] != slotStep
		if !brokeRun {
			continue
		}
		run := minutes[runStart:i]
		out = append(out, candidatesFromRun(run, steps, windowMinutes)...)
		runStart = i
	}
	return out
}

// candidatesFromRun slides a window of steps consecutive slots across one
// contiguous run, emitting one "HH:MM – HH:MM" candidate per valid window
// start, labeled with the full windowMinutes span.
func candidatesFromRun(run []int, steps, windowMinutes int) []string {
	if len(run) < steps {
		return nil
	}
	var candidates []string
	for i := 0; i+steps <= len(run); i++ {
		start := run[i]
		end := start + windowMinutes
		candidates = append(candidates, formatHHMM(start)+" – "+formatHHMM(end))
	}
	return candidates
}

func parseHHMM(s string) (int, bool) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

func formatHHMM(totalMinutes int) string {
	h := (totalMinutes / 60) % 24
	m := totalMinutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
