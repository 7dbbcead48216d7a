package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrumbot/internal/models"
)

func (a *App) generateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sprints and reports with the backend",
	}
	cmd.AddCommand(a.generateSprintCommand(), a.generateReportCommand())
	return cmd
}

func (a *App) generateSprintCommand() *cobra.Command {
	var name, description string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Plan a sprint for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.dashboard.GenerateSprint(cmd.Context(), name, description)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, out)
			}
			plan := out.SprintDetails
			fmt.Fprintf(a.out, "%s (sprint %d)\n", plan.SprintName, out.SprintID)
			if plan.Goal != "" {
				fmt.Fprintf(a.out, "Goal: %s\n", plan.Goal)
			}
			for _, task := range plan.Tasks {
				fmt.Fprintf(a.out, "- %s\n", task.Title)
				for _, sub := range task.Subtasks {
					fmt.Fprintf(a.out, "    - %s\n", sub.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *App) generateReportCommand() *cobra.Command {
	var reportType string
	var id int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report from a sprint, standup or employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.dashboard.GenerateReport(cmd.Context(), models.ReportType(reportType), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out.Report)
			return nil
		},
	}
	cmd.Flags().StringVar(&reportType, "type", "sprint", "report source: sprint, standup or employee")
	cmd.Flags().IntVar(&id, "id", 0, "id of the sprint, standup or employee")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
