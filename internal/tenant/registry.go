// Package tenant implements the Tenant Registry (spec §4.A): it resolves a
// company_id into a TenantConfig snapshot and derives company_id from an
// inbound webhook payload.
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	orcherrors "github.com/clinicflow/orchestrator/internal/errors"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// seedFile is the on-disk shape of the registry's seed data: a flat list of
// tenant configs plus an optional platform account_id -> company_id map
// used by the fifth tier of Resolve.
type seedFile struct {
	Tenants        []models.TenantConfig `yaml:"tenants"`
	AccountMapping map[string]string     `yaml:"account_mapping"`
}

const defaultCompanyID = "default"

// Registry holds a read-only-at-request-time snapshot of every tenant's
// configuration, loaded from a YAML seed file with optional hot reload.
type Registry struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	byID    map[string]models.TenantConfig
	accMap  map[string]string
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewRegistry loads the seed file at path and, if watch is true, starts a
// background goroutine that reloads it on write (the config loader's
// fsnotify use per SPEC_FULL §A — this is the registry's on-disk backing,
// not a substitute for the per-request lazy version check in §9).
func NewRegistry(path string, watch bool, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		path:   path,
		logger: logger.With("component", "tenant_registry"),
		byID:   make(map[string]models.TenantConfig),
		accMap: make(map[string]string),
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if watch {
		if err := r.startWatch(); err != nil {
			r.logger.Warn("tenant registry watch disabled", "error", err)
		}
	}
	return r, nil
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("tenant registry: read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("tenant registry: parse seed file: %w", err)
	}

	byID := make(map[string]models.TenantConfig, len(seed.Tenants))
	for _, t := range seed.Tenants {
		byID[t.CompanyID] = t
	}

	r.mu.Lock()
	r.byID = byID
	r.accMap = seed.AccountMapping
	r.mu.Unlock()

	r.logger.Info("tenant registry loaded", "tenants", len(byID))
	return nil
}

func (r *Registry) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.watcher = watcher
	r.cancel = cancel

	go func() {
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				debounce.Reset(250 * time.Millisecond)
			case <-debounce.C:
				if err := r.reload(); err != nil {
					r.logger.Warn("tenant registry reload failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("tenant registry watch error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the background watcher, if any.
func (r *Registry) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// Get resolves company_id into its TenantConfig snapshot.
func (r *Registry) Get(companyID string) (models.TenantConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byID[companyID]
	return cfg, ok
}

// MustGet resolves company_id or returns ErrTenantUnknown, matching the
// spec's "unknown id after resolution is a hard error for the request".
func (r *Registry) MustGet(companyID string) (models.TenantConfig, error) {
	cfg, ok := r.Get(companyID)
	if !ok {
		return models.TenantConfig{}, fmt.Errorf("%w: %s", orcherrors.ErrTenantUnknown, companyID)
	}
	return cfg, nil
}

// All returns every tenant currently loaded, sorted by company_id. Operator
// tooling (cmd/orchestrator's "tenant list") uses this; request handling
// never needs to enumerate tenants.
func (r *Registry) All() []models.TenantConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TenantConfig, 0, len(r.byID))
	for _, cfg := range r.byID {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}

// WebhookPayload is the minimal shape Resolve needs from an inbound event;
// internal/webhook decodes the full Chatwoot-flavored payload and passes
// the relevant fields through.
type WebhookPayload struct {
	CompanyID string
	Conversation struct {
		Meta struct {
			CompanyID string
		}
		Account struct {
			Name string
		}
		CustomAttributes struct {
			CompanyID string
		}
	}
	AccountID string
}

// Resolve derives a company_id from a webhook payload using the five-tier
// order from spec §4.A, falling back to "default" if nothing matches.
func (r *Registry) Resolve(p WebhookPayload) string {
	if strings.TrimSpace(p.CompanyID) != "" {
		return p.CompanyID
	}
	if strings.TrimSpace(p.Conversation.Meta.CompanyID) != "" {
		return p.Conversation.Meta.CompanyID
	}
	if strings.TrimSpace(p.Conversation.Account.Name) != "" {
		return strings.ToLower(p.Conversation.Account.Name)
	}
	if strings.TrimSpace(p.Conversation.CustomAttributes.CompanyID) != "" {
		return p.Conversation.CustomAttributes.CompanyID
	}
	if strings.TrimSpace(p.AccountID) != "" {
		r.mu.RLock()
		id, ok := r.accMap[p.AccountID]
		r.mu.RUnlock()
		if ok {
			return id
		}
	}
	return defaultCompanyID
}
