// Package saga implements the Compensation Orchestrator (§4.J): a named,
// ordered sequence of side-effecting tool actions executed for one user,
// with reverse-order compensation of whatever already succeeded the moment
// any action fails.
package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicflow/orchestrator/internal/audit"
	"github.com/clinicflow/orchestrator/internal/observability"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// Executor performs one saga action's side effect.
type Executor func(ctx context.Context, inputParams map[string]any) (map[string]any, error)

// Compensator undoes a previously successful action. It receives the
// action's own result so it knows what to undo (e.g. an event ID to
// cancel).
type Compensator func(ctx context.Context, result map[string]any) error

// ExecutionResult is what ExecuteSaga returns: whether the saga completed
// without a failed step, and a per-step trace for the caller to inspect or
// surface.
type ExecutionResult struct {
	Success bool
	Error   string
	Steps   []*models.Action
}

type registeredAction struct {
	action      *models.Action
	executor    Executor
	compensator Compensator
}

// Orchestrator tracks in-flight sagas and runs them against the audit log.
type Orchestrator struct {
	auditLog *audit.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex
	sagas map[string]*entry
}

type entry struct {
	saga    *models.Saga
	actions []*registeredAction
}

// New builds a saga Orchestrator. auditLog may be nil only in tests; in
// production every action transition must be durably recorded. metrics may
// be nil, in which case compensation counts run uninstrumented.
func New(auditLog *audit.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		auditLog: auditLog,
		metrics:  metrics,
		sagas:    make(map[string]*entry),
	}
}

// CreateSaga registers a new, empty saga for userID and returns it.
func (o *Orchestrator) CreateSaga(userID, sagaName string) *models.Saga {
	s := &models.Saga{
		SagaID:   uuid.NewString(),
		UserID:   userID,
		SagaName: sagaName,
	}
	o.mu.Lock()
	o.sagas[s.SagaID] = &entry{saga: s}
	o.mu.Unlock()
	return s
}

// AddAction appends a pending step to sagaID. executor performs the side
// effect; compensator undoes it if a later step in the same saga fails.
// compensator may be nil for non-compensable actions.
func (o *Orchestrator) AddAction(sagaID, actionType, name string, executor Executor, compensator Compensator, inputParams map[string]any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.sagas[sagaID]
	if !ok {
		return fmt.Errorf("saga: unknown saga %s", sagaID)
	}

	action := &models.Action{
		Type:        actionType,
		Name:        name,
		InputParams: inputParams,
		Status:      models.ActionPending,
		Compensable: compensator != nil,
	}
	if action.Compensable {
		action.Compensation = name + "_compensation"
	}

	e.saga.Actions = append(e.saga.Actions, action)
	e.actions = append(e.actions, &registeredAction{action: action, executor: executor, compensator: compensator})
	return nil
}

// ExecuteSaga runs sagaID's actions in order. On the first failure, it
// compensates every already-successful action in reverse order and stops —
// it does not attempt to compensate actions that never ran. A compensator
// failure halts further compensation, but the saga's overall result is
// still "failed" regardless of how much compensation completed.
func (o *Orchestrator) ExecuteSaga(ctx context.Context, sagaID string) (*ExecutionResult, error) {
	o.mu.Lock()
	e, ok := o.sagas[sagaID]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("saga: unknown saga %s", sagaID)
	}

	result := &ExecutionResult{Success: true, Steps: e.saga.Actions}

	var succeeded []*registeredAction
	for _, ra := range e.actions {
		auditID := o.log(e.saga.UserID, ra.action)

		ra.action.Status = models.ActionRunning
		out, err := ra.executor(ctx, ra.action.InputParams)
		if err != nil {
			ra.action.Status = models.ActionFailed
			ra.action.Error = err.Error()
			o.markFailed(auditID, err)

			result.Success = false
			result.Error = fmt.Sprintf("action %q failed: %v", ra.action.Name, err)
			o.compensate(ctx, e.saga.UserID, succeeded)
			return result, nil
		}

		ra.action.Status = models.ActionSuccess
		ra.action.Result = out
		o.markSuccess(auditID, out)
		succeeded = append(succeeded, ra)
	}

	return result, nil
}

// compensate undoes actions in reverse order. It stops at the first
// compensator failure: the remaining already-successful actions are left
// uncompensated and must be handled out of band (e.g. by an operator
// reading the audit log), since the saga has no way to know why the
// compensator itself failed.
func (o *Orchestrator) compensate(ctx context.Context, userID string, succeeded []*registeredAction) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		ra := succeeded[i]
		if ra.compensator == nil {
			continue
		}
		auditID := o.logCompensation(userID, ra.action)
		if err := ra.compensator(ctx, ra.action.Result); err != nil {
			ra.action.Error = fmt.Sprintf("compensation failed: %v", err)
			o.markFailed(auditID, err)
			o.recordCompensation("failed")
			return
		}
		ra.action.Status = models.ActionCompensated
		o.markSuccess(auditID, nil)
		o.recordCompensation("success")
	}
}

func (o *Orchestrator) recordCompensation(outcome string) {
	if o.metrics == nil {
		return
	}
	o.metrics.SagaCompensations.WithLabelValues(outcome).Inc()
}

func (o *Orchestrator) log(userID string, action *models.Action) string {
	if o.auditLog == nil {
		return ""
	}
	return o.auditLog.Log(userID, action.Type, action.Name, action.InputParams, action.Compensable, action.Compensation)
}

func (o *Orchestrator) logCompensation(userID string, action *models.Action) string {
	if o.auditLog == nil {
		return ""
	}
	return o.auditLog.Log(userID, action.Type, action.Compensation, action.Result, false, "")
}

func (o *Orchestrator) markSuccess(auditID string, result map[string]any) {
	if o.auditLog == nil || auditID == "" {
		return
	}
	o.auditLog.MarkSuccess(auditID, result)
}

func (o *Orchestrator) markFailed(auditID string, err error) {
	if o.auditLog == nil || auditID == "" {
		return
	}
	o.auditLog.MarkFailed(auditID, err.Error())
}
