// pkg/registry/schema.go
package registry

// ContractRegistry declares the response shapes scrumbot accepts from its backends.
type ContractRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Contracts   []Contract `json:"contracts"`
}

// Contract binds a JSON Schema to one endpoint response.
type Contract struct {
	ID          string                 `json:"id"`
	Method      string                 `json:"method"`
	Endpoint    string                 `json:"endpoint"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
	Tags        []string               `json:"tags,omitempty"`
}

// Contract IDs used by the clients.
const (
	ContractPipelineDryRun     = "pipeline.dry_run"
	ContractPipelineCommit     = "pipeline.commit"
	ContractPipelineError      = "pipeline.error"
	ContractDashboardSprints   = "dashboard.sprints"
	ContractDashboardReports   = "dashboard.reports"
	ContractDashboardEmployees = "dashboard.employees"
	ContractDashboardProjects  = "dashboard.projects"
	ContractGeneratedSprint    = "dashboard.generate_sprint"
	ContractGeneratedReport    = "dashboard.generate_report"
	ContractDashboardError     = "dashboard.error"
)
