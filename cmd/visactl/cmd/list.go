package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listExpr string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources visible to a backend",
	Long: `list enumerates the resource names a backend can see, optionally
filtered by a VISA glob expression (? and * wildcards).

Examples:
  visactl list
  visactl list --backend sim
  visactl list --filter "GPIB*"`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listExpr, "filter", "f", "", "VISA glob filter expression (e.g. \"GPIB*\")")
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "listing resources on backend %q\n", m.Backend())
	}

	resources, err := m.ListResources(context.Background(), listExpr)
	if err != nil {
		return fmt.Errorf("list resources: %w", err)
	}

	if len(resources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no resources found")
		return nil
	}
	for _, r := range resources {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}
