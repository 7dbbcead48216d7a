package intake

import (
	"context"
	"sync"

	"scrumbot/internal/models"
)

type pipelineCall struct {
	sentence   string
	employeeID int
}

type fakePipeline struct {
	mu           sync.Mutex
	interpretLog []pipelineCall
	commitLog    []pipelineCall

	result       *models.InterpretationResult
	record       *models.StandupRecord
	interpretErr error
	commitErr    error

	// entered receives once per call; gate blocks the call until closed.
	entered chan struct{}
	gate    chan struct{}
}

func newGatedPipeline() *fakePipeline {
	return &fakePipeline{
		result:  &models.InterpretationResult{Intent: models.IntentLogUpdate, Entities: map[string]string{}},
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}

func (f *fakePipeline) Interpret(ctx context.Context, sentence string, employeeID int) (*models.InterpretationResult, error) {
	f.mu.Lock()
	f.interpretLog = append(f.interpretLog, pipelineCall{sentence, employeeID})
	result, err := f.result, f.interpretErr
	f.mu.Unlock()

	f.wait(ctx)
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

func (f *fakePipeline) Commit(ctx context.Context, sentence string, employeeID int) (*models.StandupRecord, error) {
	f.mu.Lock()
	f.commitLog = append(f.commitLog, pipelineCall{sentence, employeeID})
	record, err := f.record, f.commitErr
	f.mu.Unlock()

	f.wait(ctx)
	if err != nil {
		return nil, err
	}
	rec := *record
	return &rec, nil
}

func (f *fakePipeline) wait(ctx context.Context) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
		}
	}
}

func (f *fakePipeline) setCommitErr(err error) {
	f.mu.Lock()
	f.commitErr = err
	f.mu.Unlock()
}

func (f *fakePipeline) interprets() []pipelineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipelineCall(nil), f.interpretLog...)
}

func (f *fakePipeline) commits() []pipelineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipelineCall(nil), f.commitLog...)
}
