package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scrumbot/internal/models"
)

func (a *App) sprintsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sprints",
		Short: "List sprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sprints, err := a.dashboard.GetSprints(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, sprints)
			}
			rows := make([][]string, 0, len(sprints))
			for _, s := range sprints {
				rows = append(rows, []string{
					strconv.Itoa(s.SprintID), s.SprintName, s.ProjectName,
					fmt.Sprintf("%.0f%%", s.Progress), s.StartDate, s.EndDate, s.Goal,
				})
			}
			writeTable(a.out, "No sprints found.", []string{"ID", "SPRINT", "PROJECT", "PROGRESS", "START", "END", "GOAL"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *App) reportsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List generated reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := a.dashboard.GetReports(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, reports)
			}
			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				rows = append(rows, []string{strconv.Itoa(r.ReportID), r.Date, r.ProjectName, firstLine(r.Content, 60)})
			}
			writeTable(a.out, "No reports found.", []string{"ID", "DATE", "PROJECT", "SUMMARY"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *App) employeesCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"members"},
		Short:   "List employees with task completion",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			employees, err := a.dashboard.GetEmployees(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, employees)
			}
			rows := make([][]string, 0, len(employees))
			for _, e := range employees {
				rows = append(rows, []string{
					strconv.Itoa(e.EmployeeID), e.Name, e.Role, e.ProjectName,
					fmt.Sprintf("%d/%d", e.CompletedTasks, e.TotalTasks),
					fmt.Sprintf("%.0f%%", e.CompletionRate()*100),
				})
			}
			writeTable(a.out, "No employees found.", []string{"ID", "NAME", "ROLE", "PROJECT", "TASKS", "DONE"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *App) projectsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"teams"},
		Short:   "List projects and their scrum teams",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.dashboard.GetProjects(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, projects)
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					strconv.Itoa(p.ProjectID), p.ProjectName, p.ScrumMaster,
					strconv.Itoa(p.SprintCount), formatProgress(p.AvgProgress), strings.Join(p.Team, ", "),
				})
			}
			writeTable(a.out, "No projects found.", []string{"ID", "PROJECT", "SCRUM MASTER", "SPRINTS", "AVG", "TEAM"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

type overview struct {
	Sprints   []models.Sprint   `json:"sprints"`
	Reports   []models.Report   `json:"reports"`
	Employees []models.Employee `json:"employees"`
	Projects  []models.Project  `json:"projects"`
}

// overviewCommand fetches every list at once, like the dashboard home page.
func (a *App) overviewCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarize sprints, reports, employees and projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ov overview
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) { ov.Sprints, err = a.dashboard.GetSprints(ctx); return })
			g.Go(func() (err error) { ov.Reports, err = a.dashboard.GetReports(ctx); return })
			g.Go(func() (err error) { ov.Employees, err = a.dashboard.GetEmployees(ctx); return })
			g.Go(func() (err error) { ov.Projects, err = a.dashboard.GetProjects(ctx); return })
			if err := g.Wait(); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, ov)
			}
			writeTable(a.out, "", []string{"RESOURCE", "COUNT"}, [][]string{
				{"Projects", strconv.Itoa(len(ov.Projects))},
				{"Sprints", strconv.Itoa(len(ov.Sprints))},
				{"Employees", strconv.Itoa(len(ov.Employees))},
				{"Reports", strconv.Itoa(len(ov.Reports))},
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, empty string, headers []string, rows [][]string) {
	if len(rows) == 0 && empty != "" {
		fmt.Fprintln(w, empty)
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func formatProgress(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *p)
}

func firstLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
