package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kastelo/treedb/cmd/serve"
)

const Version = "1.0.0"

var (
	// RootCmd represents the base command when called without any subcommands.
	RootCmd = &cobra.Command{
		Use:   "treedb",
		Short: "concurrent, tree-backed key/value database server",
		Long: fmt.Sprintf(`treedb (v%s)

A multi-client key/value database server backed by a fine-grained,
lock-coupled binary search tree, speaking a line-oriented TCP protocol.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of treedb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("treedb v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
