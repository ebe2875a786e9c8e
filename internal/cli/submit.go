package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var pf paramFlags
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a pipeline run to an mgasm server",
		Long:  "Submit a pipeline run to the server named by --server. The parameters are validated by the server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.resolve(cmd)
			if err != nil {
				return err
			}

			data, err := client.SubmitRun(cmd.Context(), params, wait)
			if err != nil {
				return fmt.Errorf("submit run: %w", err)
			}

			out := cmd.OutOrStdout()
			if data.Results != nil {
				return printJSON(out, data.Results)
			}
			fmt.Fprintf(out, "Run accepted: %s (state: %s)\n", data.ID, data.State)
			return nil
		},
	}

	pf.bind(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the run to finish and print its results")
	return cmd
}
