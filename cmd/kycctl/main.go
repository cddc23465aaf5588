// Command kycctl is the operator tool for kycgate: schema migrations, offline
// evaluation of the decision rules against fixtures, and test tokens.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kycctl",
		Short:         "kycctl - operator tooling for the kycgate gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(quoteCmd())
	root.AddCommand(tokenCmd())
	return root
}
