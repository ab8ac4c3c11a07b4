package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(env *environment, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), env, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.manager.Current()
			if !current.IsAuthenticated() {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			fmt.Fprintf(a.out, "Signed in as %s.\n", current.Email)
			fmt.Fprintf(a.out, "Backend: %s\n", a.cfg.APIBaseURL)
			return nil
		},
	}
}
