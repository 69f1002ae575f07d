// Package wizard sequences the token wizard: BasicInfo → Metadata → Review → deploy.
//
// A Wizard owns the whole WizardState of one session: the current step, the
// draft held by a form.Store, the displayed field errors and the deployment
// status tracked by a deploy.Orchestrator. Validation decides every forward
// transition; edits are refused while a deploy is in flight or after success.
package wizard

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/form"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/preview"
	"token-deploy-wizard/internal/storage"
	"token-deploy-wizard/internal/validation"
)

// Snapshot is a read-only view of the wizard state.
// Version increases with every snapshot taken, so consumers can drop stale ones.
type Snapshot struct {
	Version         uint64                  `json:"version"`
	SessionID       string                  `json:"sessionId"`
	Step            domain.Step             `json:"step"`
	Draft           domain.TokenDraft       `json:"draft"`
	Errors          map[string]string       `json:"errors"`
	Fees            domain.FeeBreakdown     `json:"fees"`
	FormattedSupply string                  `json:"formattedSupply"`
	Deployment      domain.DeploymentStatus `json:"deployment"`
	Preview         preview.State           `json:"preview"`
}

// Options for creating Wizard.
type Options struct {
	// Required
	Engine     *validation.Engine
	Calculator *fees.Calculator
	Deployer   deploy.Deployer

	// Optional
	SessionID       string // generated when empty
	Network         string
	FileReader      preview.FileReader // defaults to data URIs
	DeploymentStore storage.DeploymentStore
	EventStore      storage.WizardEventStore

	// OnChange is called with a fresh snapshot after every state change,
	// including asynchronous deploy and preview completions.
	OnChange func(Snapshot)

	Now     func() time.Time
	Logger  *log.Logger
	Verbose bool
}

// Wizard is the state machine of one session. It is safe for concurrent use.
type Wizard struct {
	sessionID  string
	engine     *validation.Engine
	calculator *fees.Calculator
	store      *form.Store
	orch       *deploy.Orchestrator
	previewer  *preview.Previewer
	events     storage.WizardEventStore
	onChange   func(Snapshot)
	now        func() time.Time
	logger     *log.Logger
	verbose    bool

	mu      sync.Mutex
	step    domain.Step
	errors  map[string]string
	version uint64

	pubMu         sync.Mutex
	lastPublished uint64
}

// New creates a Wizard on BasicInfo with an empty draft.
func New(opts Options) *Wizard {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	calc := opts.Calculator
	if calc == nil {
		calc = fees.DefaultCalculator()
	}

	w := &Wizard{
		sessionID:  sessionID,
		engine:     opts.Engine,
		calculator: calc,
		store:      form.NewStore(),
		previewer:  preview.NewPreviewer(opts.FileReader, nil),
		events:     opts.EventStore,
		onChange:   opts.OnChange,
		now:        now,
		logger:     opts.Logger,
		verbose:    opts.Verbose,
		step:       domain.StepBasicInfo,
		errors:     map[string]string{},
	}
	if w.engine == nil {
		w.engine = validation.NewEngine(nil)
	}
	w.orch = deploy.New(deploy.Options{
		Deployer:        opts.Deployer,
		DeploymentStore: opts.DeploymentStore,
		SessionID:       sessionID,
		Network:         opts.Network,
		OnStatusChange:  w.onDeployStatus,
		Now:             now,
		Logger:          opts.Logger,
		Verbose:         opts.Verbose,
	})

	observability.RecordSessionStarted()
	w.record(domain.EventSessionStarted, domain.StepBasicInfo, "")
	return w
}

// SessionID returns the session identifier.
func (w *Wizard) SessionID() string {
	return w.sessionID
}

// Snapshot returns the current state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Step returns the current step.
func (w *Wizard) Step() domain.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() domain.TokenDraft {
	return w.store.Draft()
}

// Fees returns a fee quote recomputed from the current draft.
func (w *Wizard) Fees() domain.FeeBreakdown {
	return w.calculator.Quote(w.store.Draft())
}

// Deployment returns the current deployment status.
func (w *Wizard) Deployment() domain.DeploymentStatus {
	return w.orch.Status()
}

// UpdateBasic merges patch into the draft. Stored errors of the patched
// fields are cleared; they are recomputed on the next Next. Only allowed on
// the BasicInfo step.
func (w *Wizard) UpdateBasic(patch domain.DraftPatch) (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if w.step != domain.StepBasicInfo {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	w.store.Update(patch)
	for _, f := range patch.Fields() {
		delete(w.errors, f)
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.publish(snap)
	return snap, nil
}

// SelectImage validates file and, if it passes, attaches it while keeping
// the description. An invalid file sets the image error and leaves the
// draft untouched. The preview is read asynchronously.
func (w *Wizard) SelectImage(ctx context.Context, file *domain.ImageFile) (Snapshot, error) {
	if file == nil {
		return w.RemoveImage()
	}

	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if w.step != domain.StepMetadata {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	res := validation.Image(file)
	if !res.Valid {
		w.errors[domain.FieldImage] = res.Error(domain.FieldImage)
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.publish(snap)
		return snap, &ValidationError{Step: domain.StepMetadata, Result: res}
	}

	current := w.store.Draft()
	w.store.SetMetadata(&domain.Metadata{
		Image:       file,
		Description: current.Metadata.DescriptionOrEmpty(),
	})
	delete(w.errors, domain.FieldImage)
	done := w.previewer.Select(ctx, file)
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.publish(snap)
	go func() {
		if o, ok := <-done; ok && o.Applied {
			w.publish(w.Snapshot())
		}
	}()
	return snap, nil
}

// RemoveImage detaches the image and keeps the description. Only allowed on
// the Metadata step.
func (w *Wizard) RemoveImage() (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if w.step != domain.StepMetadata {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	current := w.store.Draft()
	w.store.SetMetadata(&domain.Metadata{
		Image:       nil,
		Description: current.Metadata.DescriptionOrEmpty(),
	})
	delete(w.errors, domain.FieldImage)
	w.previewer.Clear()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.publish(snap)
	return snap, nil
}

// SetDescription replaces the description and keeps the image. The length is
// re-validated on every edit. Only allowed on the Metadata step.
func (w *Wizard) SetDescription(description string) (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if w.step != domain.StepMetadata {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	current := w.store.Draft()
	w.store.SetMetadata(&domain.Metadata{
		Image:       current.Metadata.ImageOrNil(),
		Description: description,
	})
	if res := validation.Description(description); res.Valid {
		delete(w.errors, domain.FieldDescription)
	} else {
		w.errors[domain.FieldDescription] = res.Error(domain.FieldDescription)
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.publish(snap)
	return snap, nil
}

// Next advances one step if the current step validates. On failure the step
// is unchanged and the returned *ValidationError carries the field errors.
func (w *Wizard) Next() (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}

	from := w.step
	to, ok := nextStep(from)
	if !ok {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	res := w.stepResultLocked(from)
	if !res.Valid {
		for f, msg := range res.Errors {
			w.errors[f] = msg
		}
		snap := w.snapshotLocked()
		w.mu.Unlock()

		fields := sortedKeys(res.Errors)
		observability.RecordStepBlocked(from.String(), fields)
		w.record(domain.EventStepBlocked, from, strings.Join(fields, ","))
		w.publish(snap)
		return snap, &ValidationError{Step: from, Result: res}
	}

	if from == domain.StepMetadata && w.store.Draft().Metadata == nil {
		// Visiting the step makes metadata present.
		w.store.SetMetadata(&domain.Metadata{})
	}
	w.step = to
	snap := w.snapshotLocked()
	w.mu.Unlock()

	observability.RecordStepTransition(from.String(), to.String())
	w.record(domain.EventStepAdvanced, to, "")
	w.publish(snap)
	return snap, nil
}

// Back returns to the previous step. Draft contents are preserved.
func (w *Wizard) Back() (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}

	from := w.step
	to, ok := prevStep(from)
	if !ok {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}
	w.step = to
	snap := w.snapshotLocked()
	w.mu.Unlock()

	observability.RecordStepTransition(from.String(), to.String())
	w.record(domain.EventStepBack, to, "")
	w.publish(snap)
	return snap, nil
}

// Skip clears metadata to the empty-but-present value and jumps to Review.
// Only allowed on the Metadata step.
func (w *Wizard) Skip() (Snapshot, error) {
	w.mu.Lock()
	if err := w.checkEditableLocked(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if w.step != domain.StepMetadata {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, ErrInvalidTransition
	}

	w.store.SetMetadata(&domain.Metadata{})
	delete(w.errors, domain.FieldImage)
	delete(w.errors, domain.FieldDescription)
	w.previewer.Clear()
	w.step = domain.StepReview
	snap := w.snapshotLocked()
	w.mu.Unlock()

	observability.RecordMetadataSkipped()
	observability.RecordStepTransition(domain.StepMetadata.String(), domain.StepReview.String())
	w.record(domain.EventMetadataSkipped, domain.StepReview, "")
	w.publish(snap)
	return snap, nil
}

// StartDeploy submits the current draft with a fresh fee quote. The returned
// channel yields the terminal status. Only allowed on Review. A second call
// while in flight returns deploy.ErrInFlight and changes nothing.
func (w *Wizard) StartDeploy(ctx context.Context) (<-chan domain.DeploymentStatus, Snapshot, error) {
	w.mu.Lock()
	if w.step != domain.StepReview {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return nil, snap, ErrInvalidTransition
	}

	draft := w.store.Draft()
	res := validation.Merge(w.engine.BasicInfo(draft), w.engine.Metadata(draft.Metadata))
	if !res.Valid {
		for f, msg := range res.Errors {
			w.errors[f] = msg
		}
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return nil, snap, &ValidationError{Step: domain.StepReview, Result: res}
	}

	quote := w.calculator.Quote(draft)
	ch, err := w.orch.Start(ctx, draft, quote)
	snap := w.snapshotLocked()
	w.mu.Unlock()

	if err != nil {
		return nil, snap, err
	}
	w.record(domain.EventDeployStarted, domain.StepReview, quote.TotalFee.String()+" "+quote.Unit)
	w.publish(snap)
	return ch, snap, nil
}

// Deploy submits the draft and waits for the outcome. A cancelled ctx stops
// the wait; the attempt itself continues.
func (w *Wizard) Deploy(ctx context.Context) (domain.DeploymentStatus, error) {
	ch, _, err := w.StartDeploy(ctx)
	if err != nil {
		return w.orch.Status(), err
	}
	select {
	case st := <-ch:
		return st, nil
	case <-ctx.Done():
		return w.orch.Status(), ctx.Err()
	}
}

// WaitDeploy blocks until no deploy is outstanding.
func (w *Wizard) WaitDeploy(ctx context.Context) (domain.DeploymentStatus, error) {
	return w.orch.Wait(ctx)
}

// Reset reinitializes the whole state: empty draft, BasicInfo, Idle.
// Returns deploy.ErrInFlight while a deploy is outstanding.
func (w *Wizard) Reset() (Snapshot, error) {
	w.mu.Lock()
	if err := w.orch.Reset(); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}

	w.store.Reset()
	w.step = domain.StepBasicInfo
	w.errors = map[string]string{}
	w.previewer.Clear()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	observability.RecordReset()
	w.record(domain.EventWizardReset, domain.StepBasicInfo, "")
	w.log("session %s reset", w.sessionID)
	w.publish(snap)
	return snap, nil
}

// stepResultLocked validates the fields that gate leaving step s.
func (w *Wizard) stepResultLocked(s domain.Step) validation.Result {
	draft := w.store.Draft()
	switch s {
	case domain.StepBasicInfo:
		return w.engine.BasicInfo(draft)
	case domain.StepMetadata:
		// The image itself is optional; a pending selection error still blocks.
		res := validation.Description(draft.Metadata.DescriptionOrEmpty())
		if msg, ok := w.errors[domain.FieldImage]; ok {
			res = validation.Merge(res, validation.Fail(domain.FieldImage, msg))
		}
		return res
	default:
		return validation.OK()
	}
}

func (w *Wizard) checkEditableLocked() error {
	switch w.orch.Status().State {
	case domain.DeploymentInFlight, domain.DeploymentSucceeded:
		return ErrLocked
	}
	return nil
}

func (w *Wizard) snapshotLocked() Snapshot {
	draft := w.store.Draft()
	errs := make(map[string]string, len(w.errors))
	for f, msg := range w.errors {
		errs[f] = msg
	}
	w.version++
	return Snapshot{
		Version:         w.version,
		SessionID:       w.sessionID,
		Step:            w.step,
		Draft:           draft,
		Errors:          errs,
		Fees:            w.calculator.Quote(draft),
		FormattedSupply: FormatSupply(draft.InitialSupply),
		Deployment:      w.orch.Status(),
		Preview:         w.previewer.Current(),
	}
}

// onDeployStatus runs on the orchestrator goroutine for terminal states.
// The InFlight and Idle transitions are published by the callers.
func (w *Wizard) onDeployStatus(st domain.DeploymentStatus) {
	switch st.State {
	case domain.DeploymentSucceeded:
		detail := ""
		if st.Result != nil {
			detail = st.Result.TransactionID
		}
		w.record(domain.EventDeploySucceeded, domain.StepReview, detail)
	case domain.DeploymentFailed:
		w.record(domain.EventDeployFailed, domain.StepReview, st.Message)
		w.log("session %s deploy failed: %s", w.sessionID, st.Message)
	default:
		return
	}
	w.publish(w.Snapshot())
}

// publish delivers snap unless a newer snapshot was already delivered.
func (w *Wizard) publish(snap Snapshot) {
	if w.onChange == nil {
		return
	}
	w.pubMu.Lock()
	defer w.pubMu.Unlock()
	if snap.Version < w.lastPublished {
		return
	}
	w.lastPublished = snap.Version
	w.onChange(snap)
}

// record appends an event. Store failures are logged and otherwise ignored.
func (w *Wizard) record(typ domain.EventType, step domain.Step, detail string) {
	if w.events == nil {
		return
	}
	e := &domain.WizardEvent{
		EventID:   uuid.NewString(),
		SessionID: w.sessionID,
		Type:      typ,
		Step:      step,
		Detail:    detail,
		Timestamp: w.now().UnixMilli(),
	}
	if err := w.events.Insert(context.Background(), e); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		w.logf("record %s event: %v", typ, err)
	}
}

func (w *Wizard) log(format string, args ...interface{}) {
	if w.verbose {
		w.logf(format, args...)
	}
}

func (w *Wizard) logf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
		return
	}
	log.Printf("[wizard] "+format, args...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
