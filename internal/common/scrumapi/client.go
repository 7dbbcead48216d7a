// Package scrumapi is the client for the sprint/report dashboard backend.
package scrumapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	httpclient "scrumbot/internal/common/http"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/common/metrics"
	"scrumbot/internal/common/validation"
	"scrumbot/internal/models"
	"scrumbot/pkg/registry"
)

const serviceName = "dashboard"

const (
	MsgMissingSprintFields = "Missing project_name or project_description"
	MsgInvalidReportType   = "Invalid report type"
	MsgSprintFailed        = "Error generating sprint"
	MsgReportFailed        = "Error generating report"
)

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

func NewClient(cfg config.DashboardConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		validator: validation.Default(),
		logger:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewClient(cfg.TimeoutDuration())
	}
	return c
}

func (c *Client) GetSprints(ctx context.Context) ([]models.Sprint, error) {
	var out struct {
		Sprints []models.Sprint `json:"sprints"`
	}
	if err := c.get(ctx, "/get_sprints", registry.ContractDashboardSprints, "Failed to fetch sprints", &out); err != nil {
		return nil, err
	}
	return out.Sprints, nil
}

func (c *Client) GetReports(ctx context.Context) ([]models.Report, error) {
	var out struct {
		Reports []models.Report `json:"reports"`
	}
	if err := c.get(ctx, "/get_reports", registry.ContractDashboardReports, "Failed to fetch reports", &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

func (c *Client) GetEmployees(ctx context.Context) ([]models.Employee, error) {
	var out struct {
		Employees []models.Employee `json:"employees"`
	}
	if err := c.get(ctx, "/get_employees", registry.ContractDashboardEmployees, "Failed to fetch employees", &out); err != nil {
		return nil, err
	}
	return out.Employees, nil
}

func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	var out struct {
		Projects []models.Project `json:"projects"`
	}
	if err := c.get(ctx, "/get_projects", registry.ContractDashboardProjects, "Failed to fetch projects", &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// GenerateSprint asks the backend to plan and store a sprint for a project.
func (c *Client) GenerateSprint(ctx context.Context, projectName, description string) (*models.GeneratedSprint, error) {
	projectName = strings.TrimSpace(projectName)
	description = strings.TrimSpace(description)
	if projectName == "" || description == "" {
		return nil, errors.NewValidationError(MsgMissingSprintFields)
	}

	body := map[string]interface{}{
		"project_name":        projectName,
		"project_description": description,
	}
	var out models.GeneratedSprint
	if err := c.post(ctx, "/generate_sprint", registry.ContractGeneratedSprint, MsgSprintFailed, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReport generates a plain-text report from the sprint, standup or
// employee identified by id.
func (c *Client) GenerateReport(ctx context.Context, reportType models.ReportType, id int) (*models.GeneratedReport, error) {
	if !reportType.Valid() {
		return nil, errors.NewValidationError(MsgInvalidReportType)
	}

	body := map[string]interface{}{
		"type": string(reportType),
		"id":   id,
	}
	var out models.GeneratedReport
	if err := c.post(ctx, "/generate_report", registry.ContractGeneratedReport, MsgReportFailed, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path, contract, fallback string, out interface{}) error {
	resp, err := c.http.GetJSON(ctx, c.baseURL+path)
	return c.decode(path, contract, fallback, resp, err, out)
}

func (c *Client) post(ctx context.Context, path, contract, fallback string, body, out interface{}) error {
	resp, err := c.http.PostJSON(ctx, c.baseURL+path, body)
	return c.decode(path, contract, fallback, resp, err, out)
}

func (c *Client) decode(path, contract, fallback string, resp *httpclient.Response, err error, out interface{}) error {
	if err != nil {
		metrics.DashboardRequests.WithLabelValues(path, "transport_error").Inc()
		c.logger.Error("Dashboard request failed", map[string]interface{}{
			"endpoint": path,
			"error":    err,
		})
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutError(serviceName, err)
		}
		stdErr := errors.NewTransportError(serviceName, err)
		stdErr.Message = fallback
		return stdErr
	}

	fields := map[string]interface{}{
		"endpoint":   path,
		"status":     resp.StatusCode,
		"request_id": resp.RequestID,
	}

	if !resp.OK() {
		metrics.DashboardRequests.WithLabelValues(path, "http_error").Inc()
		message := c.errorMessage(resp.Body)
		if message == "" {
			message = fallback
		}
		fields["message"] = message
		c.logger.Warn("Dashboard returned an error", fields)
		return errors.NewRequestError(message, resp.StatusCode)
	}

	result, err := c.validator.ValidateDocument(contract, resp.Body)
	if err != nil {
		return fmt.Errorf("validate %s: %w", contract, err)
	}
	if !result.Valid {
		metrics.DashboardRequests.WithLabelValues(path, "contract_violation").Inc()
		problems := result.GetErrorMessages()
		fields["problems"] = problems
		c.logger.Error("Dashboard response violates contract", fields)
		stdErr := errors.NewContractViolationError(contract, problems)
		stdErr.Message = fallback
		return stdErr
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		metrics.DashboardRequests.WithLabelValues(path, "contract_violation").Inc()
		stdErr := errors.NewContractViolationError(contract, []string{err.Error()})
		stdErr.Message = fallback
		return stdErr
	}

	metrics.DashboardRequests.WithLabelValues(path, "ok").Inc()
	c.logger.Debug("Dashboard response accepted", fields)
	return nil
}

func (c *Client) errorMessage(body []byte) string {
	result, err := c.validator.ValidateDocument(registry.ContractDashboardError, body)
	if err != nil || !result.Valid {
		return ""
	}
	var eb struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.Error
}
