package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/comigor/support-agent/internal/desk"
	"github.com/comigor/support-agent/internal/ticket"
)

func newProcessCmd(a *app) *cobra.Command {
	var (
		text      string
		source    string
		saveReply string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize one ticket and suggest a reply",
		Long:  "process reads a ticket from --text or standard input, prints its summary and a suggested reply, and optionally saves the reply as a text file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			src, err := ticket.ParseSource(source)
			if err != nil {
				return err
			}
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read ticket: %w", err)
				}
				text = string(b)
			}

			sess, err := a.sessions.Start()
			if err != nil {
				return err
			}
			defer a.endSession(sess.ID)

			entry, err := a.desk.Submit(cmd.Context(), sess, text, src)
			if err != nil {
				notice := desk.Describe(err)
				fmt.Fprintln(cmd.ErrOrStderr(), notice.Message)
				if notice.Hint != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), notice.Hint)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ticket Summary\n%s\n\nSuggested Reply\n%s\n", entry.Summary, entry.Reply)

			if saveReply != "" {
				path := filepath.Join(saveReply, desk.ReplyFilename(entry.Timestamp))
				if err := os.WriteFile(path, []byte(entry.Reply), 0o644); err != nil {
					return fmt.Errorf("save reply: %w", err)
				}
				fmt.Fprintf(out, "\nReply saved to %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "ticket text (read from stdin when empty)")
	cmd.Flags().StringVar(&source, "source", "", "ticket source: Email, Chat, Voice Transcript or Manual Entry")
	cmd.Flags().StringVar(&saveReply, "save-reply", "", "directory to save the suggested reply in")
	return cmd
}
