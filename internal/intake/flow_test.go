package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/common/pipeline"
	"scrumbot/internal/models"
	"scrumbot/internal/store"
)

type runRequest struct {
	Sentence      string `json:"sentence"`
	EmployeeID    int    `json:"employee_id"`
	ConfirmInsert int    `json:"confirm_insert"`
}

// backend is a fake /fullpipeline/run that answers dry runs with dryRun and
// commits with commit.
type backend struct {
	mu       sync.Mutex
	requests []runRequest
	dryRun   string
	commit   string
	status   int
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	status, body := b.status, b.dryRun
	if req.ConfirmInsert == 1 {
		body = b.commit
	}
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (b *backend) Requests() []runRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]runRequest(nil), b.requests...)
}

func newHTTPFlow(t *testing.T, b *backend, opts ...Option) *Flow {
	t.Helper()
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	client := pipeline.NewClient(config.PipelineConfig{BaseURL: server.URL}, logger.NewTestLogger(t))
	return NewFlow(client, append([]Option{WithLogger(logger.NewTestLogger(t))}, opts...)...)
}

func TestSubmit_UnknownWithoutEntitiesOffersRephrase(t *testing.T) {
	for _, body := range []string{`{"intent":"unknown"}`, `{"intent":"unknown","entities":null}`} {
		t.Run(body, func(t *testing.T) {
			b := &backend{dryRun: body}
			flow := newHTTPFlow(t, b)

			result, err := flow.Submit(context.Background(), "banana")
			require.NoError(t, err)
			assert.Empty(t, result.EntityKeys())

			snap := flow.Snapshot()
			assert.Equal(t, StateInterpreted, snap.State)
			assert.Empty(t, snap.Message)
			assert.Equal(t, []Action{{Kind: ActionRephrase, Label: MsgRephrase}}, flow.Actions())
		})
	}
}

func TestSubmit_SendsExactlyOneDryRun(t *testing.T) {
	sentences := []string{
		"Completed login API, started on payments",
		"  padded sentence  ",
		"x",
	}
	for _, sentence := range sentences {
		t.Run(sentence, func(t *testing.T) {
			b := &backend{dryRun: `{"intent":"log_update","entities":{"task":"payments"}}`}
			flow := newHTTPFlow(t, b)

			result, err := flow.Submit(context.Background(), sentence)
			require.NoError(t, err)
			assert.Equal(t, models.IntentLogUpdate, result.Intent)

			reqs := b.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, sentence, reqs[0].Sentence)
			assert.Equal(t, 0, reqs[0].ConfirmInsert)
			assert.Equal(t, DefaultEmployeeID, reqs[0].EmployeeID)
			assert.Equal(t, StateInterpreted, flow.Snapshot().State)
		})
	}
}

func TestSubmit_EmptySentenceSendsNothing(t *testing.T) {
	for _, sentence := range []string{"", " ", "\n\t  "} {
		b := &backend{dryRun: `{"intent":"log_update","entities":{}}`}
		flow := newHTTPFlow(t, b)

		_, err := flow.Submit(context.Background(), sentence)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.Equal(t, MsgEmptySentence, errors.UserMessage(err))

		snap := flow.Snapshot()
		assert.Equal(t, StateIdle, snap.State)
		assert.Equal(t, "Please enter your standup sentence.", snap.Message)
		assert.Empty(t, b.Requests())
	}
}

func TestScenario_LogUpdateAcceptedAndSaved(t *testing.T) {
	b := &backend{
		dryRun: `{"intent":"log_update","entities":{"task":"payments"}}`,
		commit: `{"intent":"log_update","entities":{"task":"payments"},"standup_id":42}`,
	}
	flow := newHTTPFlow(t, b)
	ctx := context.Background()
	sentence := "Completed login API, started on payments"

	result, err := flow.Submit(ctx, sentence)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"task": "payments"}, result.Entities)
	assert.Equal(t, ActionsFor(models.IntentLogUpdate), flow.Actions())

	outcome, err := flow.Confirm(ctx, true)
	require.NoError(t, err)
	require.True(t, outcome.Saved)
	assert.Equal(t, models.StandupID("42"), outcome.Record.StandupID)

	reqs := b.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 1, reqs[1].ConfirmInsert)
	assert.Equal(t, sentence, reqs[1].Sentence)
	assert.Equal(t, reqs[0].EmployeeID, reqs[1].EmployeeID)

	snap := flow.Snapshot()
	assert.Equal(t, StateSaved, snap.State)
	assert.Equal(t, SavedActions(), flow.Actions())
}

func TestConfirm_DeclineSendsNothing(t *testing.T) {
	b := &backend{dryRun: `{"intent":"log_update","entities":{"task":"payments"}}`}
	flow := newHTTPFlow(t, b)
	ctx := context.Background()

	_, err := flow.Submit(ctx, "Completed login API")
	require.NoError(t, err)

	outcome, err := flow.Confirm(ctx, false)
	require.NoError(t, err)
	assert.False(t, outcome.Saved)
	assert.Nil(t, outcome.Record)

	assert.Len(t, b.Requests(), 1)
	snap := flow.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, flow.Actions())

	_, err = flow.Confirm(ctx, true)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFlowState))
	assert.Len(t, b.Requests(), 1)
}

func TestActions_NonLogIntentsOfferNoConfirm(t *testing.T) {
	tests := []struct {
		intent models.Intent
		want   []Action
	}{
		{models.IntentQueryUpdate, []Action{{Kind: ActionNavigate, Label: "View Logs", Route: "/standups"}}},
		{models.IntentUpdateEntry, []Action{{Kind: ActionNavigate, Label: "Edit Standup", Route: "/standups"}}},
		{models.IntentUnknown, []Action{{Kind: ActionRephrase, Label: "Couldn’t determine intent. Try rephrasing your message."}}},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			b := &backend{dryRun: `{"intent":"` + string(tt.intent) + `","entities":{}}`}
			flow := newHTTPFlow(t, b)
			ctx := context.Background()

			_, err := flow.Submit(ctx, "what did I do yesterday")
			require.NoError(t, err)

			actions := flow.Actions()
			assert.Equal(t, tt.want, actions)
			_, hasAccept := Find(actions, ActionAccept)
			assert.False(t, hasAccept)

			_, err = flow.Confirm(ctx, true)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFlowState))
			_, err = flow.Confirm(ctx, false)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFlowState))
			assert.Len(t, b.Requests(), 1)
			assert.Equal(t, StateInterpreted, flow.Snapshot().State)
		})
	}
}

func TestConfirm_BeforeSubmit(t *testing.T) {
	b := &backend{}
	flow := newHTTPFlow(t, b)

	_, err := flow.Confirm(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidFlowState, errors.CodeOf(err))
	assert.Empty(t, b.Requests())
}

func TestSubmit_ServerErrorThenRetry(t *testing.T) {
	b := &backend{status: http.StatusBadRequest, dryRun: `{"detail":"Sentence could not be parsed"}`}
	flow := newHTTPFlow(t, b)
	ctx := context.Background()

	_, err := flow.Submit(ctx, "gibberish")
	require.Error(t, err)
	assert.True(t, errors.IsRequest(err))

	snap := flow.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "Sentence could not be parsed", snap.Message)
	assert.Empty(t, flow.Actions())

	_, err = flow.Confirm(ctx, true)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFlowState))

	b.mu.Lock()
	b.status = http.StatusOK
	b.dryRun = `{"intent":"log_update","entities":{}}`
	b.mu.Unlock()

	_, err = flow.Submit(ctx, "Finished the docs")
	require.NoError(t, err)
	snap = flow.Snapshot()
	assert.Equal(t, StateInterpreted, snap.State)
	assert.Empty(t, snap.Message)
}

func TestSubmit_FallbackMessage(t *testing.T) {
	b := &backend{status: http.StatusInternalServerError, dryRun: `Internal Server Error`}
	flow := newHTTPFlow(t, b)

	_, err := flow.Submit(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "Server error", flow.Snapshot().Message)
}

func TestConfirm_CommitFailureCanBeRetried(t *testing.T) {
	fake := &fakePipeline{
		result:    &models.InterpretationResult{Intent: models.IntentLogUpdate, Entities: map[string]string{"task": "payments"}},
		record:    &models.StandupRecord{Intent: models.IntentLogUpdate, StandupID: "7"},
		commitErr: errors.NewRequestError("Database unavailable", http.StatusServiceUnavailable),
	}
	flow := NewFlow(fake)
	ctx := context.Background()

	_, err := flow.Submit(ctx, "Completed login API")
	require.NoError(t, err)

	_, err = flow.Confirm(ctx, true)
	require.Error(t, err)
	snap := flow.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "Database unavailable", snap.Message)
	assert.NotNil(t, snap.Result)
	assert.Equal(t, ActionsFor(models.IntentLogUpdate), flow.Actions())

	fake.setCommitErr(nil)
	outcome, err := flow.Confirm(ctx, true)
	require.NoError(t, err)
	assert.True(t, outcome.Saved)
	assert.Len(t, fake.commits(), 2)
	assert.Equal(t, StateSaved, flow.Snapshot().State)
}

func TestFlow_BusyRejectsOverlappingCalls(t *testing.T) {
	fake := newGatedPipeline()
	flow := NewFlow(fake)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(ctx, "first")
		done <- err
	}()
	<-fake.entered

	_, err := flow.Submit(ctx, "second")
	assert.True(t, IsBusy(err))
	_, err = flow.Confirm(ctx, true)
	assert.True(t, IsBusy(err))

	snap := flow.Snapshot()
	assert.True(t, snap.Busy)
	assert.Equal(t, StateSubmitting, snap.State)
	assert.Nil(t, flow.Actions())

	close(fake.gate)
	require.NoError(t, <-done)
	assert.Len(t, fake.interprets(), 1)
	assert.False(t, flow.Snapshot().Busy)
}

func TestFlow_ResetDiscardsInFlightResponse(t *testing.T) {
	fake := newGatedPipeline()
	flow := NewFlow(fake)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(ctx, "stale")
		done <- err
	}()
	<-fake.entered

	flow.Reset()
	close(fake.gate)
	err := <-done
	assert.True(t, IsSuperseded(err))

	snap := flow.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.Busy)

	result, err := flow.Submit(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.IntentLogUpdate, result.Intent)
	assert.Equal(t, "fresh", flow.Snapshot().Sentence)
}

func TestFlow_EmployeeIDFromSession(t *testing.T) {
	ctx := context.Background()
	session := store.NewMemoryStore()
	fake := &fakePipeline{result: &models.InterpretationResult{Intent: models.IntentUnknown}}
	flow := NewFlow(fake, WithSession(session), WithDefaultEmployeeID(3))

	_, err := flow.Submit(ctx, "hello")
	require.NoError(t, err)

	_, err = session.Login(ctx, models.User{ID: "u9", Name: "Ravi", EmployeeID: 9})
	require.NoError(t, err)
	_, err = flow.Submit(ctx, "hello again")
	require.NoError(t, err)

	calls := fake.interprets()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[0].employeeID)
	assert.Equal(t, 9, calls[1].employeeID)
}

func TestSnapshot_IsACopy(t *testing.T) {
	fake := &fakePipeline{result: &models.InterpretationResult{Intent: models.IntentLogUpdate, Entities: map[string]string{"task": "payments"}}}
	flow := NewFlow(fake)

	result, err := flow.Submit(context.Background(), "hello")
	require.NoError(t, err)
	result.Entities["task"] = "changed"

	snap := flow.Snapshot()
	snap.Result.Entities["task"] = "changed again"
	assert.Equal(t, "payments", flow.Snapshot().Result.Entities["task"])
}

func TestSubmit_DiscardsPreviousOutcome(t *testing.T) {
	fake := &fakePipeline{result: &models.InterpretationResult{Intent: models.IntentLogUpdate}}
	flow := NewFlow(fake)
	ctx := context.Background()

	_, err := flow.Submit(ctx, "one")
	require.NoError(t, err)
	_, err = flow.Confirm(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, flow.Snapshot().Outcome)

	_, err = flow.Submit(ctx, "two")
	require.NoError(t, err)
	snap := flow.Snapshot()
	assert.Nil(t, snap.Outcome)
	assert.Equal(t, StateInterpreted, snap.State)
	assert.Equal(t, "two", snap.Sentence)
}
