package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scrumbot/internal/models"
	"scrumbot/internal/store"
)

func (a *App) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show or change the shared UI session",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := a.session.Get(cmd.Context())
			if err != nil {
				return err
			}
			a.printSession(state)
			return nil
		},
	}

	var user models.User
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Set the logged-in user whose employee id standups are filed under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user.ID == "" {
				user.ID = uuid.NewString()
			}
			state, err := a.session.Login(cmd.Context(), user)
			if err != nil {
				return err
			}
			a.printSession(state)
			return nil
		},
	}
	loginCmd.Flags().IntVar(&user.EmployeeID, "employee-id", 0, "employee id")
	loginCmd.Flags().StringVar(&user.Name, "name", "", "display name")
	loginCmd.Flags().StringVar(&user.ID, "id", "", "user id (generated when empty)")
	_ = loginCmd.MarkFlagRequired("employee-id")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := a.session.Logout(cmd.Context())
			if err != nil {
				return err
			}
			a.printSession(state)
			return nil
		},
	}

	sidebarCmd := &cobra.Command{
		Use:       "sidebar [toggle|open|close]",
		Short:     "Change the sidebar flag",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle", "open", "close"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				state store.State
				err   error
			)
			switch args[0] {
			case "toggle":
				state, err = a.session.ToggleSidebar(cmd.Context())
			case "open":
				state, err = a.session.SetSidebarOpen(cmd.Context(), true)
			default:
				state, err = a.session.SetSidebarOpen(cmd.Context(), false)
			}
			if err != nil {
				return err
			}
			a.printSession(state)
			return nil
		},
	}

	cmd.AddCommand(showCmd, loginCmd, logoutCmd, sidebarCmd)
	return cmd
}

func (a *App) printSession(s store.State) {
	sidebar := "closed"
	if s.SidebarOpen {
		sidebar = "open"
	}
	fmt.Fprintf(a.out, "Sidebar: %s\n", sidebar)
	if s.LoggedIn && s.User != nil {
		fmt.Fprintf(a.out, "User: %s (employee %d)\n", s.User.Name, s.User.EmployeeID)
		return
	}
	fmt.Fprintln(a.out, "User: not logged in")
}
