// Package intake implements the standup intake flow: a dry run that
// interprets a sentence, then an explicit accept or decline that commits it.
package intake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/common/metrics"
	"scrumbot/internal/common/observability"
	"scrumbot/internal/models"
	"scrumbot/internal/store"
)

type State string

const (
	StateIdle        State = "idle"
	StateSubmitting  State = "submitting"
	StateInterpreted State = "interpreted"
	StateConfirming  State = "confirming"
	StateSaved       State = "saved"
	StateCancelled   State = "cancelled"
	StateError       State = "error"
)

const (
	MsgEmptySentence = "Please enter your standup sentence."
	MsgSaved         = "Standup Saved Successfully"
	MsgNotSaved      = "Entry not saved."

	DefaultEmployeeID = 1
)

// Pipeline is the remote interpreter. *pipeline.Client satisfies it.
type Pipeline interface {
	Interpret(ctx context.Context, sentence string, employeeID int) (*models.InterpretationResult, error)
	Commit(ctx context.Context, sentence string, employeeID int) (*models.StandupRecord, error)
}

// Session supplies the logged-in user.
type Session interface {
	Get(ctx context.Context) (store.State, error)
}

// Snapshot is a copy of the flow's state. Mutating it has no effect on the flow.
type Snapshot struct {
	ID         string                       `json:"id"`
	State      State                        `json:"state"`
	Sentence   string                       `json:"sentence,omitempty"`
	EmployeeID int                          `json:"employee_id,omitempty"`
	Result     *models.InterpretationResult `json:"result,omitempty"`
	Outcome    *models.ConfirmationOutcome  `json:"outcome,omitempty"`
	Message    string                       `json:"message,omitempty"`
	Busy       bool                         `json:"busy"`
	Seq        uint64                       `json:"seq"`
}

type Option func(*Flow)

func WithSession(s Session) Option {
	return func(f *Flow) { f.session = s }
}

func WithDefaultEmployeeID(id int) Option {
	return func(f *Flow) {
		if id > 0 {
			f.defaultEmployeeID = id
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

func WithObservability(o *observability.Observability) Option {
	return func(f *Flow) { f.obs = o }
}

// Flow is one standup intake conversation. It is safe for concurrent use;
// at most one request is in flight at a time.
type Flow struct {
	id                string
	pipeline          Pipeline
	session           Session
	defaultEmployeeID int
	logger            logger.Logger
	obs               *observability.Observability

	mu         sync.Mutex
	state      State
	failedFrom State
	sentence   string
	employeeID int
	result     *models.InterpretationResult
	outcome    *models.ConfirmationOutcome
	message    string
	busy       bool
	seq        uint64
}

func NewFlow(p Pipeline, opts ...Option) *Flow {
	f := &Flow{
		id:                uuid.NewString(),
		pipeline:          p,
		defaultEmployeeID: DefaultEmployeeID,
		state:             StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.NewNoOpLogger()
	}
	f.logger = f.logger.With(map[string]interface{}{"flow_id": f.id})
	return f
}

func (f *Flow) ID() string { return f.id }

// Submit interprets sentence with a dry run. An empty sentence fails with a
// validation error and sends nothing. Any previous result or outcome is
// discarded once the request is sent.
func (f *Flow) Submit(ctx context.Context, sentence string) (*models.InterpretationResult, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, errors.NewFlowBusyError()
	}
	if strings.TrimSpace(sentence) == "" {
		f.message = MsgEmptySentence
		state := f.state
		f.mu.Unlock()
		f.logger.Warn("Rejected empty standup sentence", map[string]interface{}{
			"state": string(state),
		})
		return nil, errors.NewValidationError(MsgEmptySentence)
	}
	seq := f.begin(StateSubmitting)
	f.result = nil
	f.outcome = nil
	f.mu.Unlock()

	employeeID := f.resolveEmployeeID(ctx)

	ctx, finish := f.instrument(ctx, phaseDryRun, seq)
	result, err := f.pipeline.Interpret(ctx, sentence, employeeID)
	finish(err)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		return nil, f.superseded(seq)
	}
	f.busy = false
	if err != nil {
		f.fail(StateSubmitting, err)
		return nil, err
	}

	f.sentence = sentence
	f.employeeID = employeeID
	f.result = result.Clone()
	f.transition(StateInterpreted)
	f.logger.Info("Standup interpreted", map[string]interface{}{
		"intent":   result.Intent.String(),
		"entities": result.EntityKeys(),
		"seq":      seq,
	})
	return result.Clone(), nil
}

// Confirm accepts or declines a log_update interpretation. Declining is
// local. Accepting replays the interpreted sentence with confirm_insert=1.
// A failed commit may be confirmed again.
func (f *Flow) Confirm(ctx context.Context, accept bool) (*models.ConfirmationOutcome, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, errors.NewFlowBusyError()
	}
	if !f.canConfirm() {
		state := f.state
		f.mu.Unlock()
		return nil, errors.NewInvalidFlowStateError("confirm", string(state))
	}

	if !accept {
		defer f.mu.Unlock()
		f.result = nil
		f.message = ""
		f.outcome = models.NotSaved()
		f.transition(StateCancelled)
		metrics.FlowOutcomes.WithLabelValues("cancelled").Inc()
		f.logger.Info("Standup declined", nil)
		return &models.ConfirmationOutcome{Saved: false}, nil
	}

	seq := f.begin(StateConfirming)
	sentence, employeeID := f.sentence, f.employeeID
	f.mu.Unlock()

	ctx, finish := f.instrument(ctx, phaseCommit, seq)
	record, err := f.pipeline.Commit(ctx, sentence, employeeID)
	finish(err)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		return nil, f.superseded(seq)
	}
	f.busy = false
	if err != nil {
		f.fail(StateConfirming, err)
		return nil, err
	}

	f.outcome = &models.ConfirmationOutcome{Saved: true, Record: record}
	f.transition(StateSaved)
	metrics.FlowOutcomes.WithLabelValues("saved").Inc()
	f.logger.Info("Standup saved", map[string]interface{}{
		"standup_id": record.StandupID.String(),
		"seq":        seq,
	})
	return copyOutcome(f.outcome), nil
}

// Actions returns the next steps for the current state.
func (f *Flow) Actions() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actions()
}

func (f *Flow) actions() []Action {
	if f.busy {
		return nil
	}
	switch {
	case f.state == StateSaved:
		return SavedActions()
	case f.result != nil && (f.state == StateInterpreted || f.state == StateError):
		return ActionsFor(f.result.Intent)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		ID:         f.id,
		State:      f.state,
		Sentence:   f.sentence,
		EmployeeID: f.employeeID,
		Result:     f.result.Clone(),
		Outcome:    copyOutcome(f.outcome),
		Message:    f.message,
		Busy:       f.busy,
		Seq:        f.seq,
	}
}

// Reset returns the flow to idle. A response still in flight is discarded
// when it arrives.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.busy = false
	f.sentence = ""
	f.employeeID = 0
	f.result = nil
	f.outcome = nil
	f.message = ""
	f.failedFrom = ""
	f.transition(StateIdle)
}

// ClearMessage dismisses the inline message.
func (f *Flow) ClearMessage() {
	f.mu.Lock()
	f.message = ""
	f.mu.Unlock()
}

// IsBusy reports an error returned because a request was already in flight.
func IsBusy(err error) bool {
	return errors.HasCode(err, errors.ErrCodeFlowBusy)
}

// IsSuperseded reports an error returned for a response that arrived after
// Reset or a newer request.
func IsSuperseded(err error) bool {
	return errors.HasCode(err, errors.ErrCodeRequestSuperseded)
}

func (f *Flow) canConfirm() bool {
	if f.result == nil || f.result.Intent != models.IntentLogUpdate {
		return false
	}
	return f.state == StateInterpreted || (f.state == StateError && f.failedFrom == StateConfirming)
}

// begin marks a request in flight. Callers hold f.mu.
func (f *Flow) begin(next State) uint64 {
	f.seq++
	f.busy = true
	f.message = ""
	f.transition(next)
	return f.seq
}

// fail records err and moves to the error state. Callers hold f.mu.
func (f *Flow) fail(from State, err error) {
	f.failedFrom = from
	f.message = errors.UserMessage(err)
	f.transition(StateError)
	f.logger.Error("Standup request failed", map[string]interface{}{
		"from":     string(from),
		"category": errors.GetErrorCategory(errors.CodeOf(err)),
		"error":    err,
	})
}

func (f *Flow) superseded(seq uint64) error {
	f.logger.Debug("Discarding superseded response", map[string]interface{}{
		"seq":     seq,
		"current": f.seq,
	})
	return errors.NewRequestSupersededError(seq)
}

// transition sets the state. Callers hold f.mu.
func (f *Flow) transition(next State) {
	prev := f.state
	f.state = next
	if prev == next {
		return
	}
	metrics.FlowTransitions.WithLabelValues(string(prev), string(next)).Inc()
	f.logger.Debug("Flow transition", map[string]interface{}{
		"from": string(prev),
		"to":   string(next),
	})
}

func (f *Flow) resolveEmployeeID(ctx context.Context) int {
	if f.session == nil {
		return f.defaultEmployeeID
	}
	state, err := f.session.Get(ctx)
	if err != nil {
		f.logger.Warn("Session unavailable, using default employee", map[string]interface{}{
			"error":       err,
			"employee_id": f.defaultEmployeeID,
		})
		return f.defaultEmployeeID
	}
	return state.EmployeeID(f.defaultEmployeeID)
}

const (
	phaseDryRun = "dry_run"
	phaseCommit = "commit"
)

// instrument opens a span for one pipeline call and returns the function
// that closes it.
func (f *Flow) instrument(ctx context.Context, phase string, seq uint64) (context.Context, func(error)) {
	ctx, span := f.obs.StartSpan(ctx, "intake."+phase,
		attribute.String("flow.id", f.id),
		attribute.Int64("flow.seq", int64(seq)),
	)
	metrics.FlowRequestsInFlight.Inc()
	start := time.Now()

	return ctx, func(err error) {
		metrics.FlowRequestsInFlight.Dec()
		f.obs.RecordRoundTrip(ctx, phase, time.Since(start))
		status := "ok"
		if err != nil {
			status = string(errors.CodeOf(err))
			if status == "" {
				status = "error"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, errors.UserMessage(err))
		}
		f.obs.RecordSubmission(ctx, phase, status)
		span.End()
	}
}

func copyOutcome(o *models.ConfirmationOutcome) *models.ConfirmationOutcome {
	if o == nil {
		return nil
	}
	out := &models.ConfirmationOutcome{Saved: o.Saved}
	if o.Record != nil {
		rec := *o.Record
		rec.Entities = make(map[string]string, len(o.Record.Entities))
		for k, v := range o.Record.Entities {
			rec.Entities[k] = v
		}
		out.Record = &rec
	}
	return out
}
