package main

import "github.com/spf13/cobra"

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "support-agent",
		Short:        "AI customer support agent: ticket summaries and suggested replies",
		Long:         "support-agent summarizes customer support tickets and drafts replies with a hosted generative-language model, using the last tickets of the session as context.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.wire()
		},
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newProcessCmd(a),
	)

	return rootCmd
}
