package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "booking",
		Short:         "Kinetic EV booking, payment and lead service",
		Version:       Version,
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	return root
}

// Execute runs the command line.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
