package cmd

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	campaigndomain "bulk_mail_client/internal/pkg/campaign/domain"
	campaignusecase "bulk_mail_client/internal/pkg/campaign/usecase"
)

func newUploadCommand(env *environment, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Check a recipients CSV and preview the parsed rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), env, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			dataset, err := a.upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Parsed %d rows from %s.\n\n", dataset.Len(), dataset.Source)
			a.printPreview()
			return nil
		},
	}
}

func (a *app) upload(ctx context.Context, path string) (campaigndomain.Dataset, error) {
	file, err := a.fs.Open(path)
	if err != nil {
		return campaigndomain.Dataset{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return a.campaign.Upload(ctx, path, file)
}

func (a *app) printPreview() {
	columns := a.campaign.Dataset().Columns()
	preview := a.campaign.Preview(campaignusecase.PreviewSize)
	if len(columns) == 0 {
		fmt.Fprintln(a.out, "The file has no rows.")
		return
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range preview.Rows {
		values := make([]string, len(columns))
		for i, column := range columns {
			values[i] = row[column]
		}
		table.Append(values)
	}
	table.Render()

	if preview.Remaining > 0 {
		fmt.Fprintf(a.out, "...and %d more rows\n", preview.Remaining)
	}
}
