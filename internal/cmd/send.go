package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"bulk_mail_client/internal/pkg/session/domain"
)

func newSendCommand(env *environment, opts *options) *cobra.Command {
	var csvPath, template, templateFile string

	command := &cobra.Command{
		Use:   "send",
		Short: "Send the message to every row of a CSV",
		Example: `  bulk-mail send --csv recipients.csv --template "Hi {name}, see you on {date}."
  bulk-mail send --csv recipients.csv --template-file message.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), env, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.manager.IsAuthenticated() {
				return domain.ErrNotAuthenticated
			}

			if templateFile != "" {
				data, err := afero.ReadFile(a.fs, templateFile)
				if err != nil {
					return fmt.Errorf("failed to read template: %w", err)
				}
				template = string(data)
			}

			dataset, err := a.upload(cmd.Context(), csvPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Uploaded %d rows.\n", dataset.Len())

			a.campaign.SetDraft(template)
			result, err := a.campaign.Send(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, result.Message)
			return nil
		},
	}

	command.Flags().StringVar(&csvPath, "csv", "", "recipients CSV file")
	command.Flags().StringVar(&template, "template", "", "message with {column} placeholders")
	command.Flags().StringVar(&templateFile, "template-file", "", "read the message from a file")
	command.MarkFlagRequired("csv")
	command.MarkFlagsMutuallyExclusive("template", "template-file")
	command.MarkFlagsOneRequired("template", "template-file")
	return command
}
