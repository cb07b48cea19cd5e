package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benchdrive/govisa/pkg/govisa/rm"
)

var (
	verbose        bool
	backendFlag    string
	backendOptions string
)

var rootCmd = &cobra.Command{
	Use:   "visactl",
	Short: "VISA resource control CLI",
	Long: `visactl talks to VISA resources through govisa: list what's
reachable, open a resource and query it, or print backend and platform
diagnostics.

Examples:
  visactl list                           # enumerate resources on the default backend
  visactl list --backend sim             # enumerate resources on the simulated backend
  visactl query "GPIB0::3::INSTR" "*IDN?" # send a command and print the response
  visactl info                           # print backend/platform diagnostics`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "",
		"backend name (empty selects the default foreign VISA library backend; \"sim\" selects the in-process simulator)")
	rootCmd.PersistentFlags().StringVar(&backendOptions, "backend-options", "",
		"options string passed to the selected backend's factory")
}

// newManager is the createAdapter-style factory every subcommand uses to
// get a resource manager, kept here so it is the single place backend
// construction changes. The Manager it returns is bound to the
// --backend/--backend-options selection for the lifetime of the command.
func newManager() (*rm.Manager, error) {
	m, err := rm.Open(backendFlag, backendOptions)
	if err != nil {
		return nil, fmt.Errorf("open resource manager on backend %q: %w", backendFlag, err)
	}
	return m, nil
}
