package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var (
		saveDir string
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the ticket form in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			logger.SetOutput(out)

			sess, err := a.sessions.Start()
			if err != nil {
				return err
			}
			defer a.endSession(sess.ID)

			return tui.Run(cmd.Context(), a.desk, sess, saveDir)
		},
	}
	cmd.Flags().StringVar(&saveDir, "save-dir", ".", "directory for saved replies")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file instead of discarding them")
	return cmd
}
