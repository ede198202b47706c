package models

import "time"

// Provenance records which tier of the Prompt Resolver search order produced
// a template.
type Provenance string

const (
	ProvenanceCustom    Provenance = "custom"
	ProvenanceDefault   Provenance = "default"
	ProvenanceHardcoded Provenance = "hardcoded"
	ProvenanceEmergency Provenance = "emergency"
)

// AgentKey identifies which specialist a prompt template belongs to.
type AgentKey string

const (
	AgentRouter    AgentKey = "router"
	AgentSales     AgentKey = "sales"
	AgentSupport   AgentKey = "support"
	AgentEmergency AgentKey = "emergency"
	AgentSchedule  AgentKey = "schedule"
)

// PromptTemplate is a resolved, render-ready prompt body with provenance.
//
// Recognized placeholders in Body: {question}, {chat_history}, {context},
// {company_name}, {services}.
type PromptTemplate struct {
	CompanyID    string     `json:"company_id"`
	AgentKey     AgentKey   `json:"agent_key"`
	Body         string     `json:"body"`
	Provenance   Provenance `json:"provenance"`
	Version      int        `json:"version"`
	LastModified time.Time  `json:"last_modified"`
}
