// Package deploy drives the asynchronous deploy call for a single draft.
// It coordinates: InFlight → deploy service → Succeeded | Failed
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/storage"
)

// DefaultFailureMessage is used when the deploy service fails without a message.
const DefaultFailureMessage = "Deployment failed"

var (
	// ErrInFlight is returned when a deploy is requested while one is outstanding.
	ErrInFlight = errors.New("deployment already in flight")
	// ErrAlreadyDeployed is returned when a deploy is requested after success.
	ErrAlreadyDeployed = errors.New("token already deployed")
	// ErrNoDeployer is returned when no deploy service is configured.
	ErrNoDeployer = errors.New("no deploy service configured")
)

// Deployer is the deploy-service collaborator.
// Implementations submit the finalized draft and return an opaque result.
// deploymentID is unique per attempt; a service that sees the same ID twice
// must treat the second submission as a duplicate of the first.
type Deployer interface {
	Submit(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeployResult, error)
}

// DeployerFunc adapts a function to Deployer.
type DeployerFunc func(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeployResult, error)

// Submit calls f.
func (f DeployerFunc) Submit(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeployResult, error) {
	return f(ctx, deploymentID, draft, fees)
}

// Orchestrator tracks the deployment status of one draft.
// At most one deploy is outstanding at any time.
type Orchestrator struct {
	deployer        Deployer
	deploymentStore storage.DeploymentStore
	sessionID       string
	network         string
	onStatusChange  func(domain.DeploymentStatus)
	now             func() time.Time
	logger          *log.Logger
	verbose         bool

	mu     sync.Mutex
	status domain.DeploymentStatus
	done   chan struct{} // closed when the outstanding attempt finishes
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Deployer Deployer

	// Optional persistence of finished attempts
	DeploymentStore storage.DeploymentStore
	SessionID       string
	Network         string

	// OnStatusChange is called after every status transition, outside the lock.
	OnStatusChange func(domain.DeploymentStatus)

	// Now overrides the clock (tests).
	Now func() time.Time

	Logger  *log.Logger
	Verbose bool
}

// New creates a new Orchestrator in the Idle state.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		deployer:        opts.Deployer,
		deploymentStore: opts.DeploymentStore,
		sessionID:       opts.SessionID,
		network:         opts.Network,
		onStatusChange:  opts.OnStatusChange,
		now:             now,
		logger:          opts.Logger,
		verbose:         opts.Verbose,
		status:          domain.IdleStatus(),
	}
}

// Status returns the current deployment status.
func (o *Orchestrator) Status() domain.DeploymentStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Start sets the status to InFlight and submits the draft in the background.
// The returned channel yields the terminal status once and is then closed.
// Returns ErrInFlight without side effects while an attempt is outstanding,
// and ErrAlreadyDeployed after a successful deploy. A Failed status may be retried.
//
// The attempt is not cancelled when ctx is; only ctx values are inherited.
func (o *Orchestrator) Start(ctx context.Context, draft domain.TokenDraft, fees domain.FeeBreakdown) (<-chan domain.DeploymentStatus, error) {
	if o.deployer == nil {
		return nil, ErrNoDeployer
	}

	o.mu.Lock()
	switch o.status.State {
	case domain.DeploymentInFlight:
		o.mu.Unlock()
		observability.RecordDeployRejected()
		return nil, ErrInFlight
	case domain.DeploymentSucceeded:
		o.mu.Unlock()
		return nil, ErrAlreadyDeployed
	}
	o.status = domain.DeploymentStatus{State: domain.DeploymentInFlight}
	deploymentID := uuid.NewString()
	done := make(chan struct{})
	o.done = done
	status := o.status
	o.mu.Unlock()

	observability.RecordDeployStarted(fees.Unit, fees.TotalFee.InexactFloat64())
	o.notify(status)
	o.log("deploy started: id=%s symbol=%s total_fee=%s %s", deploymentID, draft.Symbol, fees.TotalFee, fees.Unit)

	out := make(chan domain.DeploymentStatus, 1)
	attemptCtx := context.WithoutCancel(ctx)
	snapshot := draft.Clone()

	go func() {
		defer close(out)
		startedAt := o.now()

		result, err := o.submit(attemptCtx, deploymentID, snapshot, fees)
		final := terminalStatus(result, err)
		finishedAt := o.now()

		// The record is stored before waiters are released.
		o.persist(attemptCtx, deploymentID, snapshot, fees, final, startedAt, finishedAt)

		o.mu.Lock()
		o.status = final
		o.done = nil
		o.mu.Unlock()
		close(done)

		observability.RecordDeployFinished(string(final.State), finishedAt.Sub(startedAt).Seconds(), finishedAt.Unix())
		if final.State == domain.DeploymentFailed {
			o.log("deploy failed: symbol=%s message=%q", snapshot.Symbol, final.Message)
		} else {
			o.log("deploy succeeded: symbol=%s tx=%s", snapshot.Symbol, final.Result.TransactionID)
		}
		o.notify(final)
		out <- final
	}()

	return out, nil
}

// Deploy starts a deploy and waits for its outcome.
// A cancelled ctx stops the wait but not the attempt.
func (o *Orchestrator) Deploy(ctx context.Context, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeploymentStatus, error) {
	ch, err := o.Start(ctx, draft, fees)
	if err != nil {
		return o.Status(), err
	}
	select {
	case st := <-ch:
		return st, nil
	case <-ctx.Done():
		return o.Status(), ctx.Err()
	}
}

// Wait blocks until no attempt is outstanding and returns the status.
func (o *Orchestrator) Wait(ctx context.Context) (domain.DeploymentStatus, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return o.Status(), ctx.Err()
		}
	}
	return o.Status(), nil
}

// Reset returns the status to Idle. Returns ErrInFlight while an attempt is outstanding.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.status.State == domain.DeploymentInFlight {
		o.mu.Unlock()
		return ErrInFlight
	}
	changed := o.status.State != domain.DeploymentIdle
	o.status = domain.IdleStatus()
	o.mu.Unlock()

	if changed {
		o.notify(domain.IdleStatus())
	}
	return nil
}

// submit calls the deployer, converting a panic into an error.
func (o *Orchestrator) submit(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (result domain.DeployResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return o.deployer.Submit(ctx, deploymentID, draft, fees)
}

// terminalStatus normalizes the deployer outcome. Error messages are kept verbatim.
func terminalStatus(result domain.DeployResult, err error) domain.DeploymentStatus {
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = DefaultFailureMessage
		}
		return domain.DeploymentStatus{State: domain.DeploymentFailed, Message: msg}
	}
	r := result
	return domain.DeploymentStatus{State: domain.DeploymentSucceeded, Result: &r}
}

// persist writes the finished attempt. Store failures are logged, never surfaced.
func (o *Orchestrator) persist(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown, st domain.DeploymentStatus, startedAt, finishedAt time.Time) {
	if o.deploymentStore == nil {
		return
	}

	finished := finishedAt.UnixMilli()
	rec := &domain.DeploymentRecord{
		DeploymentID:  deploymentID,
		SessionID:     o.sessionID,
		Network:       o.network,
		Name:          draft.Name,
		Symbol:        draft.Symbol,
		Decimals:      draft.Decimals,
		InitialSupply: draft.InitialSupply,
		AdminWallet:   draft.AdminWallet,
		HasMetadata:   draft.HasMetadataContent(),
		BaseFee:       fees.BaseFee.String(),
		MetadataFee:   fees.MetadataFee.String(),
		TotalFee:      fees.TotalFee.String(),
		State:         st.State,
		StartedAt:     startedAt.UnixMilli(),
		FinishedAt:    &finished,
	}
	if st.Result != nil {
		tx := st.Result.TransactionID
		rec.TransactionID = &tx
	}
	if st.State == domain.DeploymentFailed {
		msg := st.Message
		rec.ErrorMessage = &msg
	}

	if err := o.deploymentStore.Insert(ctx, rec); err != nil {
		o.logAlways("persist deployment %s: %v", rec.DeploymentID, err)
	}
}

func (o *Orchestrator) notify(st domain.DeploymentStatus) {
	if o.onStatusChange != nil {
		o.onStatusChange(st)
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logAlways(format, args...)
	}
}

func (o *Orchestrator) logAlways(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
		return
	}
	log.Printf("[deploy] "+format, args...)
}
