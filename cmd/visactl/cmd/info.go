package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print backend and platform diagnostics",
	Long: `info prints the kind of non-secret diagnostic data useful in a bug
report: platform identity, registered backends, and how many sessions this
process currently has open (always zero for a one-shot CLI invocation,
but meaningful when govisa is embedded in a longer-lived program).`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	diag := m.Diagnostics()
	fmt.Fprintf(cmd.OutOrStdout(), "OS:                  %s\n", diag.OS)
	fmt.Fprintf(cmd.OutOrStdout(), "Arch:                %s\n", diag.Arch)
	fmt.Fprintf(cmd.OutOrStdout(), "Registered backends: %v\n", diag.RegisteredBackends)
	fmt.Fprintf(cmd.OutOrStdout(), "Backend:             %q\n", diag.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "Library path:        %q\n", diag.LibraryPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Open sessions:       %d\n", diag.OpenSessions)
	return nil
}
