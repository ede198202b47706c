// Package agents implements the Router Handler (§4.F) and the shared
// signal-detection heuristics the Orchestration Graph uses for secondary
// intent and cross-agent validation (§4.K). Specialist handlers live in
// the sales, support, emergency, and schedule subpackages.
package agents

import "strings"

// pricingSignals are the currency-symbol / keyword detectors used for
// has_pricing and cross-agent validation (SPEC_FULL §C.3, grounded on
// orchestrator_graph.py's _execute_agent/_validate_cross_agent_info).
var pricingSignals = []string{"$", "COP", "USD", "precio", "costo", "precios", "cuesta", "cuanto cuesta"}

// scheduleSignals are generic scheduling-intent words, language-neutral
// enough to catch both English and Spanish tenants.
var scheduleSignals = []string{"cita", "agendar", "appointment", "schedule", "booking", "reservar", "horario"}

// supportSignals mark a general support/problem question.
var supportSignals = []string{"problema", "ayuda", "help", "issue", "support", "no funciona", "queja"}

// HasPricingSignal reports whether text contains a currency symbol or
// pricing keyword.
func HasPricingSignal(text string) bool {
	return containsAny(text, pricingSignals)
}

// HasScheduleSignal reports whether text contains scheduling language.
func HasScheduleSignal(text string) bool {
	return containsAny(text, scheduleSignals)
}

// HasSupportSignal reports whether text contains support/problem language.
func HasSupportSignal(text string) bool {
	return containsAny(text, supportSignals)
}

// HasEmergencyKeyword reports whether text contains any of the tenant's
// configured emergency keywords.
func HasEmergencyKeyword(text string, keywords []string) bool {
	return containsAny(text, keywords)
}

// HasKeyword reports whether text contains any keyword in set, matched
// case-insensitively.
func HasKeyword(text string, set []string) bool {
	return containsAny(text, set)
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
