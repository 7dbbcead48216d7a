// internal/models/dashboard.go
package models

// Sprint is a row of GET /get_sprints.
type Sprint struct {
	SprintID    int     `json:"sprint_id"`
	SprintName  string  `json:"sprint_name"`
	Progress    float64 `json:"progress"`
	Goal        string  `json:"goal"`
	ProjectName string  `json:"project_name"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

type Report struct {
	ReportID    int    `json:"report_id"`
	Date        string `json:"date"`
	Content     string `json:"content"`
	ProjectName string `json:"project_name"`
}

type Employee struct {
	EmployeeID     int    `json:"employee_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ProjectName    string `json:"project_name"`
	CompletedTasks int    `json:"completed_tasks"`
	TotalTasks     int    `json:"total_tasks"`
}

// CompletionRate returns completed/total, or 0 for an employee without tasks.
func (e Employee) CompletionRate() float64 {
	if e.TotalTasks == 0 {
		return 0
	}
	return float64(e.CompletedTasks) / float64(e.TotalTasks)
}

type Project struct {
	ProjectID   int      `json:"project_id"`
	ProjectName string   `json:"project_name"`
	ScrumMaster string   `json:"scrum_master"`
	SprintCount int      `json:"sprint_count"`
	AvgProgress *float64 `json:"avg_progress"`
	Team        []string `json:"team"`
}

type SubTask struct {
	SubtaskID   int    `json:"subtask_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Task struct {
	TaskID      int       `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subtasks    []SubTask `json:"subtasks"`
}

// SprintPlan is the generated sprint hierarchy: sprint, tasks, subtasks.
type SprintPlan struct {
	SprintID   int    `json:"sprint_id"`
	SprintName string `json:"sprint_name"`
	Goal       string `json:"goal"`
	Tasks      []Task `json:"tasks"`
}

type GeneratedSprint struct {
	Message       string     `json:"message"`
	SprintID      int        `json:"sprint_id"`
	SprintDetails SprintPlan `json:"sprint_details"`
}

type GeneratedReport struct {
	Message string `json:"message"`
	Report  string `json:"report"`
}

// ReportType selects the data a report is generated from.
type ReportType string

const (
	ReportTypeSprint   ReportType = "sprint"
	ReportTypeStandup  ReportType = "standup"
	ReportTypeEmployee ReportType = "employee"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeSprint, ReportTypeStandup, ReportTypeEmployee:
		return true
	}
	return false
}
