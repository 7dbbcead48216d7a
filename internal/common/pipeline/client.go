// Package pipeline talks to the standup interpretation service.
package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	httpclient "scrumbot/internal/common/http"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/common/metrics"
	"scrumbot/internal/common/validation"
	"scrumbot/internal/models"
	"scrumbot/pkg/registry"
)

const (
	RunPath     = "/fullpipeline/run"
	serviceName = "pipeline"

	PhaseDryRun = "dry_run"
	PhaseCommit = "commit"
)

// RunResponse is the decoded body of a 2xx /fullpipeline/run response.
// StandupID is empty for dry runs.
type RunResponse struct {
	Intent    models.Intent     `json:"intent"`
	Entities  map[string]string `json:"entities"`
	StandupID models.StandupID  `json:"standup_id,omitempty"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

type Client struct {
	baseURL   string
	http      *httpclient.Client
	validator *validation.Validator
	logger    logger.Logger
}

type Option func(*Client)

func WithHTTPClient(c *httpclient.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithValidator(v *validation.Validator) Option {
	return func(cl *Client) { cl.validator = v }
}

func NewClient(cfg config.PipelineConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewClient(cfg.TimeoutDuration())
	}
	if c.validator == nil {
		c.validator = validation.Default()
	}
	return c
}

// Interpret runs the pipeline with confirm_insert=0. Nothing is persisted.
func (c *Client) Interpret(ctx context.Context, sentence string, employeeID int) (*models.InterpretationResult, error) {
	resp, err := c.Run(ctx, models.StandupInput{Sentence: sentence, EmployeeID: employeeID})
	if err != nil {
		return nil, err
	}
	return &models.InterpretationResult{Intent: resp.Intent, Entities: resp.Entities}, nil
}

// Commit runs the pipeline with confirm_insert=1 and returns the stored record.
func (c *Client) Commit(ctx context.Context, sentence string, employeeID int) (*models.StandupRecord, error) {
	resp, err := c.Run(ctx, models.StandupInput{Sentence: sentence, EmployeeID: employeeID, Confirm: true})
	if err != nil {
		return nil, err
	}
	return &models.StandupRecord{
		Intent:    resp.Intent,
		Entities:  resp.Entities,
		StandupID: resp.StandupID,
	}, nil
}

// Run posts one StandupInput and validates the response against the
// contract of its phase.
func (c *Client) Run(ctx context.Context, input models.StandupInput) (*RunResponse, error) {
	phase, contract := PhaseDryRun, registry.ContractPipelineDryRun
	if input.Confirm {
		phase, contract = PhaseCommit, registry.ContractPipelineCommit
	}

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.baseURL+RunPath, input)
	metrics.PipelineRequestDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRequests.WithLabelValues(phase, "transport_error").Inc()
		c.logger.Error("Pipeline request failed", map[string]interface{}{
			"phase": phase,
			"error": err,
		})
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewTimeoutError(serviceName, err)
		}
		return nil, errors.NewTransportError(serviceName, err)
	}

	fields := map[string]interface{}{
		"phase":      phase,
		"status":     resp.StatusCode,
		"request_id": resp.RequestID,
	}

	if !resp.OK() {
		metrics.PipelineRequests.WithLabelValues(phase, "http_error").Inc()
		reqErr := errors.NewRequestError(c.errorDetail(resp.Body), resp.StatusCode)
		fields["message"] = reqErr.Message
		c.logger.Warn("Pipeline returned an error", fields)
		return nil, reqErr.WithMetadata("request_id", resp.RequestID)
	}

	result, err := c.validator.ValidateDocument(contract, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", contract, err)
	}
	if !result.Valid {
		metrics.PipelineRequests.WithLabelValues(phase, "contract_violation").Inc()
		problems := result.GetErrorMessages()
		fields["problems"] = problems
		c.logger.Error("Pipeline response violates contract", fields)
		return nil, errors.NewContractViolationError(contract, problems).WithMetadata("request_id", resp.RequestID)
	}

	var out RunResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		metrics.PipelineRequests.WithLabelValues(phase, "contract_violation").Inc()
		return nil, errors.NewContractViolationError(contract, []string{err.Error()})
	}
	if out.Entities == nil {
		out.Entities = map[string]string{}
	}

	metrics.PipelineRequests.WithLabelValues(phase, "ok").Inc()
	fields["intent"] = out.Intent.String()
	c.logger.Debug("Pipeline response accepted", fields)
	return &out, nil
}

// errorDetail extracts {detail} from an error body, or "" when the body
// does not carry one.
func (c *Client) errorDetail(body []byte) string {
	result, err := c.validator.ValidateDocument(registry.ContractPipelineError, body)
	if err != nil || !result.Valid {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.Detail
}
