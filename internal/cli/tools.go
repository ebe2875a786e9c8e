package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the external assembly tools",
	}
	cmd.AddCommand(newToolsCheckCmd())
	return cmd
}

func newToolsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every configured tool is installed and executable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			all := cfg.Tools.All()
			names := make([]string, 0, len(all))
			for name := range all {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s  %-6s  %-20s  %s\n", "TOOL", "STATUS", "VERSION", "PATH")
			fmt.Fprintf(out, "%-14s  %-6s  %-20s  %s\n", "----", "------", "-------", "----")
			missing := 0
			for _, name := range names {
				tool := all[name]
				status := "ok"
				if err := tool.Check(); err != nil {
					status = "MISSING"
					missing++
					logger.Debug("tool check failed", "tool", name, "error", err)
				}
				fmt.Fprintf(out, "%-14s  %-6s  %-20s  %s\n", name, status, shorten(tool.Version, 20), tool.Path)
			}

			if missing > 0 {
				return fmt.Errorf("%d of %d tools unresolved", missing, len(names))
			}
			return nil
		},
	}
}
