package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var pf paramFlags
	var readsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the assembly pipeline in this process",
		Long: "Run the assembly pipeline in this process and print the results as JSON.\n" +
			"With --reads-file the FASTQ is first imported into the local catalog.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.resolve(cmd)
			if err != nil {
				return err
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if readsFile != "" {
				if app.Catalog == nil {
					return errors.New("--reads-file requires the local backend")
				}
				ref, err := app.Catalog.ImportReads(cmd.Context(), readsFile, "")
				if err != nil {
					return fmt.Errorf("import reads: %w", err)
				}
				logger.Info("imported reads", "ref", ref, "path", readsFile)
				params.ReadsRef = ref
			}

			outcome, err := app.Orchestrator.Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			logger.Info("run finished", "run_id", outcome.RunID, "output_dir", outcome.OutputDir)
			return printJSON(cmd.OutOrStdout(), outcome.Results)
		},
	}

	pf.bind(cmd)
	cmd.Flags().StringVar(&readsFile, "reads-file", "", "Interleaved FASTQ to import as the input reads (local backend)")
	return cmd
}
