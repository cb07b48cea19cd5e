package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/instrument"
)

var queryTimeoutMs uint32

var queryCmd = &cobra.Command{
	Use:   "query <resource> <command>",
	Short: "Open a resource, write a command, and print the response",
	Long: `query opens resource (optionally through --backend), writes command,
and prints the trimmed response — the write-then-read idiom most SCPI
instruments expect for something like "*IDN?".

Examples:
  visactl query "GPIB0::3::INSTR" "*IDN?"
  visactl query --backend sim "ASRL1::INSTR" "*IDN?"`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Uint32Var(&queryTimeoutMs, "timeout", 2000, "operation timeout in milliseconds")
}

func runQuery(cmd *cobra.Command, args []string) error {
	resource, command := args[0], args[1]
	ctx := context.Background()

	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	handle, rec, err := m.OpenResource(ctx, resource, attr.AccessNoLock, queryTimeoutMs)
	if err != nil {
		return fmt.Errorf("open resource %q: %w", resource, err)
	}
	defer m.CloseResource(handle)

	sess, err := m.Session(handle)
	if err != nil {
		return fmt.Errorf("retrieve session: %w", err)
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", resource)
	}

	mb := instrument.NewMessageBased(instrument.Open(rec, sess, queryTimeoutMs))
	response, err := mb.Query(ctx, command)
	if err != nil {
		return fmt.Errorf("query %q: %w", command, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), response)
	return nil
}
