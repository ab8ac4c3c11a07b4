package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCommand(env *environment, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session here and on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), env, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.manager.IsAuthenticated() {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			email := a.manager.Email()
			if err := a.manager.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed out %s.\n", email)
			return nil
		},
	}
}
