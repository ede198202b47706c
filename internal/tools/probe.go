package tools

import (
	"context"
	"sync"

	"github.com/clinicflow/orchestrator/internal/agents/schedule"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// ScheduleProbe implements schedule.AvailabilityProbe by lazily building
// and caching one ScheduleClient per tenant, keyed by company_id, since
// each tenant's schedule_backend has its own URL and kind.
type ScheduleProbe struct {
	mu      sync.Mutex
	clients map[string]ScheduleClient
}

// NewScheduleProbe builds an empty ScheduleProbe.
func NewScheduleProbe() *ScheduleProbe {
	return &ScheduleProbe{clients: make(map[string]ScheduleClient)}
}

var _ schedule.AvailabilityProbe = (*ScheduleProbe)(nil)

// CheckAvailability satisfies schedule.AvailabilityProbe.
func (p *ScheduleProbe) CheckAvailability(ctx context.Context, tenant models.TenantConfig, date, treatment string) ([]string, error) {
	client := p.clientFor(tenant)
	return client.CheckAvailabilityRaw(ctx, date, treatment)
}

func (p *ScheduleProbe) clientFor(tenant models.TenantConfig) ScheduleClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[tenant.CompanyID]; ok {
		return c
	}
	c := NewHTTPScheduleClient(tenant.ScheduleBackend, tenant.CompanyID, tenant.DisplayName, tenant.TreatmentDurations)
	p.clients[tenant.CompanyID] = c
	return c
}
