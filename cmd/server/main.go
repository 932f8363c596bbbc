package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mindbridge",
		Short:         "MindBridge student mental-health screening server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "mindbridge.yaml", "path to YAML config file (optional)")
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newScoreCommand(),
		newQuestionsCommand(),
	)
	return root
}
