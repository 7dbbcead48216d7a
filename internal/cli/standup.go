package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"scrumbot/internal/common/errors"
	"scrumbot/internal/intake"
	"scrumbot/internal/models"
	"scrumbot/internal/tui"
)

func (a *App) standupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "standup",
		Short:       "Open the interactive standup board",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTerminal: "true"},
		RunE:        a.runBoard,
	}
	cmd.AddCommand(a.standupSubmitCommand())
	return cmd
}

func (a *App) runBoard(cmd *cobra.Command, _ []string) error {
	if !isTerminal(a.in) || !isTerminal(a.out) {
		return errors.NewValidationError(MsgNeedsTerminal)
	}

	board := tui.NewBoard(cmd.Context(), a.newFlow(),
		tui.WithSession(a.session),
		tui.WithLogger(a.log),
	)
	program := tea.NewProgram(board,
		tea.WithContext(cmd.Context()),
		tea.WithInput(a.in),
		tea.WithOutput(a.out),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("standup board: %w", err)
	}

	if route := board.Route(); route != "" {
		fmt.Fprintf(a.out, "Open %s\n", a.cfg.Dashboard.RouteURL(route))
	}
	return nil
}

const MsgNeedsTerminal = "The standup board needs a terminal. Use `scrumbot standup submit` instead."

// isTerminal reports whether v is a file attached to a terminal. Streams that
// are not files (tests, pipes wrapped by callers) are left to bubbletea.
func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type submitOptions struct {
	yes  bool
	no   bool
	json bool
}

func (a *App) standupSubmitCommand() *cobra.Command {
	var opts submitOptions
	cmd := &cobra.Command{
		Use:   "submit <sentence>",
		Short: "Interpret a standup sentence and optionally save it",
		Example: `  scrumbot standup submit "Completed login API, started on payments"
  scrumbot standup submit --yes "Fixed the flaky payment tests"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSubmit(cmd, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "save a log_update without asking")
	cmd.Flags().BoolVarP(&opts.no, "no", "n", false, "never save, only interpret")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the final flow snapshot as JSON")
	cmd.MarkFlagsMutuallyExclusive("yes", "no")
	return cmd
}

func (a *App) runSubmit(cmd *cobra.Command, sentence string, opts submitOptions) error {
	ctx := cmd.Context()
	flow := a.newFlow()

	result, err := flow.Submit(ctx, sentence)
	if err != nil {
		return err
	}
	if !opts.json {
		printInterpretation(a.out, result)
	}

	actions := flow.Actions()
	if _, ok := intake.Find(actions, intake.ActionAccept); ok {
		accept := opts.yes
		if !opts.yes && !opts.no {
			accept = a.ask("Save to Database? [y/N]: ")
		}
		if _, err := flow.Confirm(ctx, accept); err != nil {
			return err
		}
		actions = flow.Actions()
	}

	snap := flow.Snapshot()
	if opts.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			intake.Snapshot
			Actions []intake.Action `json:"actions,omitempty"`
		}{snap, actions})
	}

	switch snap.State {
	case intake.StateSaved:
		fmt.Fprintln(a.out, intake.MsgSaved)
		fmt.Fprintf(a.out, "ID: %s\n", snap.Outcome.Record.StandupID)
	case intake.StateCancelled:
		fmt.Fprintln(a.out, intake.MsgNotSaved)
	}
	for _, action := range actions {
		switch action.Kind {
		case intake.ActionNavigate:
			fmt.Fprintf(a.out, "%s: %s\n", action.Label, a.cfg.Dashboard.RouteURL(action.Route))
		case intake.ActionRephrase:
			fmt.Fprintln(a.out, action.Label)
		}
	}
	return nil
}

// ask prints prompt and reports whether the answer starts with y.
// End of input counts as no.
func (a *App) ask(prompt string) bool {
	fmt.Fprint(a.out, prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printInterpretation(w io.Writer, r *models.InterpretationResult) {
	fmt.Fprintf(w, "Intent: %s\n", r.Intent)
	for _, k := range r.EntityKeys() {
		fmt.Fprintf(w, "  %s: %s\n", k, r.Entities[k])
	}
}
