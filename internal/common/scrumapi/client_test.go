package scrumapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.DashboardConfig{BaseURL: server.URL}, logger.NewTestLogger(t))
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestListEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_sprints", respond(http.StatusOK,
		`{"sprints":[{"sprint_id":2,"sprint_name":"Payments","progress":40.5,"goal":null,"project_name":"Scrumbot"}]}`))
	mux.HandleFunc("/get_reports", respond(http.StatusOK,
		`{"reports":[{"report_id":9,"date":"2025-01-02","content":"All good","project_name":"Scrumbot"}]}`))
	mux.HandleFunc("/get_employees", respond(http.StatusOK,
		`{"employees":[{"employee_id":1,"name":"Asha","role":"Dev","completed_tasks":3,"total_tasks":4}]}`))
	mux.HandleFunc("/get_projects", respond(http.StatusOK,
		`{"projects":[{"project_id":1,"project_name":"Scrumbot","scrum_master":"Ravi","sprint_count":2,"avg_progress":null,"team":["Asha","Ravi"]}]}`))
	client := newTestClient(t, mux.ServeHTTP)
	ctx := context.Background()

	sprints, err := client.GetSprints(ctx)
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.Equal(t, "Payments", sprints[0].SprintName)
	assert.Equal(t, "", sprints[0].Goal)

	reports, err := client.GetReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 9, reports[0].ReportID)

	employees, err := client.GetEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.InDelta(t, 0.75, employees[0].CompletionRate(), 0.0001)

	projects, err := client.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Nil(t, projects[0].AvgProgress)
	assert.Equal(t, []string{"Asha", "Ravi"}, projects[0].Team)
}

func TestGetSprints_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    errors.ErrorCode
		message string
	}{
		{"server message", http.StatusInternalServerError, `{"error":"connection refused"}`, errors.ErrCodeRequestFailed, "connection refused"},
		{"no message", http.StatusInternalServerError, `oops`, errors.ErrCodeRequestFailed, "Failed to fetch sprints"},
		{"bad envelope", http.StatusOK, `{"items":[]}`, errors.ErrCodeContractViolation, "Failed to fetch sprints"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, respond(tt.status, tt.body))
			_, err := client.GetSprints(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.Equal(t, tt.message, errors.UserMessage(err))
		})
	}
}

func TestGenerateSprint(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate_sprint", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		respond(http.StatusCreated, `{"message":"Sprint generated successfully","sprint_id":5,
			"sprint_details":{"sprint_name":"S1","goal":"Ship","tasks":[{"title":"API","description":"d","subtasks":[{"title":"auth","description":"x"}]}]}}`)(w, r)
	})

	out, err := client.GenerateSprint(context.Background(), " Scrumbot ", "Standup tooling")
	require.NoError(t, err)
	assert.Equal(t, 5, out.SprintID)
	require.Len(t, out.SprintDetails.Tasks, 1)
	assert.Equal(t, "auth", out.SprintDetails.Tasks[0].Subtasks[0].Title)
	assert.Equal(t, map[string]string{"project_name": "Scrumbot", "project_description": "Standup tooling"}, got)
}

func TestGenerateSprint_RequiresFields(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.GenerateSprint(context.Background(), "Scrumbot", "  ")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, MsgMissingSprintFields, errors.UserMessage(err))
	assert.False(t, called)
}

func TestGenerateReport(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		respond(http.StatusCreated, `{"message":"Report generated successfully","report":"Title: Sprint 2"}`)(w, r)
	})

	out, err := client.GenerateReport(context.Background(), models.ReportTypeSprint, 2)
	require.NoError(t, err)
	assert.Equal(t, "Title: Sprint 2", out.Report)
	assert.Equal(t, "sprint", got["type"])
	assert.EqualValues(t, 2, got["id"])
}

func TestGenerateReport_Errors(t *testing.T) {
	t.Run("invalid type", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusCreated, `{}`))
		_, err := client.GenerateReport(context.Background(), models.ReportType("weekly"), 1)
		assert.True(t, errors.IsValidation(err))
		assert.Equal(t, MsgInvalidReportType, errors.UserMessage(err))
	})
	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusNotFound, `{"error":"No data found for sprint ID 7"}`))
		_, err := client.GenerateReport(context.Background(), models.ReportTypeSprint, 7)
		assert.Equal(t, "No data found for sprint ID 7", errors.UserMessage(err))
	})
	t.Run("fallback", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusInternalServerError, ``))
		_, err := client.GenerateReport(context.Background(), models.ReportTypeEmployee, 1)
		assert.Equal(t, MsgReportFailed, errors.UserMessage(err))
	})
}
