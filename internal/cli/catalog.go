package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/mgasm/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local object catalog",
		Long:  "Manage the objects of the local backend: imported reads and the outputs of local runs.",
	}
	cmd.AddCommand(newCatalogImportCmd(), newCatalogListCmd())
	return cmd
}

// openCatalog wires the application and requires the local backend.
func openCatalog(cmd *cobra.Command) (*App, *catalog.Catalog, error) {
	app, err := openApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	if app.Catalog == nil {
		app.Close()
		return nil, nil, errors.New("the catalog requires the local backend (backend: local)")
	}
	return app, app.Catalog, nil
}

func newCatalogImportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import-reads <file.fastq>",
		Short: "Import an interleaved FASTQ as a reads object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cat, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ref, err := cat.ImportReads(cmd.Context(), args[0], name)
			if err != nil {
				return fmt.Errorf("import reads: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Object name (default: file name)")
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cat, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			objects, err := cat.List(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("list objects: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(objects) == 0 {
				fmt.Fprintln(out, "No objects found.")
				return nil
			}

			fmt.Fprintf(out, "%-52s  %-10s  %-30s  %s\n", "REF", "KIND", "NAME", "SIZE")
			fmt.Fprintf(out, "%-52s  %-10s  %-30s  %s\n", "---", "----", "----", "----")
			for _, obj := range objects {
				size := "-"
				if info, err := os.Stat(obj.Path); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				fmt.Fprintf(out, "%-52s  %-10s  %-30s  %s\n", obj.Ref, obj.Kind, shorten(obj.Name, 30), size)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list objects of this kind (reads, assembly, alignment, report)")
	return cmd
}
