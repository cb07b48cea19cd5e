package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

var openExclusive bool

var openCmd = &cobra.Command{
	Use:   "open <resource>",
	Short: "Open a resource and print how it parsed, then close it",
	Long: `open is a one-shot connectivity check: it parses resource, opens a
session against it through the selected backend, prints the parsed
resource-name fields, and closes the session. It does not start an
interactive session (use query for a single write/read round trip).

Examples:
  visactl open "TCPIP0::192.168.1.5::INSTR"
  visactl open --exclusive "GPIB0::3::INSTR"`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().BoolVar(&openExclusive, "exclusive", false, "request exclusive access")
}

func runOpen(cmd *cobra.Command, args []string) error {
	resource := args[0]
	mode := attr.AccessNoLock
	if openExclusive {
		mode = attr.AccessExclusive
	}

	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	handle, rec, err := m.OpenResource(context.Background(), resource, mode, 2000)
	if err != nil {
		return fmt.Errorf("open resource %q: %w", resource, err)
	}
	defer m.CloseResource(handle)

	fmt.Fprintf(cmd.OutOrStdout(), "interface:      %s\n", rec.InterfaceType)
	fmt.Fprintf(cmd.OutOrStdout(), "resource class: %s\n", rec.ResourceClass)
	fmt.Fprintf(cmd.OutOrStdout(), "board:          %d\n", rec.Board)
	if rec.BoardAlias != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "board alias:    %s\n", rec.BoardAlias)
	}
	if rec.Host != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "host:           %s\n", rec.Host)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "opened successfully\n")
	return nil
}
