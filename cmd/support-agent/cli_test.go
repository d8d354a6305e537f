package main

import (
	"bytes"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/support-agent/internal/config"
	"github.com/comigor/support-agent/internal/history"
	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/session"
)

// fakeCompletions answers like an OpenAI-compatible endpoint.
func fakeCompletions(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		content := "Thanks for reaching out, a replacement is on its way."
		if strings.HasPrefix(req.Messages[0].Content, "Summarize") {
			content = "Order never arrived; customer is frustrated."
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	empty := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("\n"), 0o600))
	t.Setenv("CONFIG_PATH", empty)
	t.Setenv("ENV_FILE", envFile)
	t.Setenv(config.APIKeyEnv, "")
	t.Setenv("SUPPORT_AGENT_LLM_API_KEY", "")
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProcessCommand(t *testing.T) {
	isolateConfig(t)
	srv := fakeCompletions(t)
	t.Setenv(config.APIKeyEnv, "test-key")
	t.Setenv("SUPPORT_AGENT_LLM_BASE_URL", srv.URL)
	saveDir := t.TempDir()

	out, _, err := runCLI(t, "process", "--source", "Email", "--text", "My order #123 never arrived", "--save-reply", saveDir)
	require.NoError(t, err)
	require.Contains(t, out, "Ticket Summary\nOrder never arrived; customer is frustrated.")
	require.Contains(t, out, "Suggested Reply\nThanks for reaching out, a replacement is on its way.")

	files, err := filepath.Glob(filepath.Join(saveDir, "reply_*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.Equal(t, "Thanks for reaching out, a replacement is on its way.", string(content))
}

func TestProcessCommand_EmptyTicket(t *testing.T) {
	isolateConfig(t)
	t.Setenv(config.APIKeyEnv, "test-key")
	t.Setenv("SUPPORT_AGENT_LLM_BASE_URL", fakeCompletions(t).URL)

	_, stderr, err := runCLI(t, "process")
	require.Error(t, err)
	require.Contains(t, stderr, "Please enter a support ticket")
}

func TestMissingAPIKeyStopsBeforeAnyCommand(t *testing.T) {
	isolateConfig(t)

	_, _, err := runCLI(t, "process", "--text", "hello")
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}

type brokenStore struct{ history.Store }

func (brokenStore) Clear() error { return errors.New("disk on fire") }

type brokenBackend struct{}

func (brokenBackend) Open(string) (history.Store, error) {
	return brokenStore{Store: history.NewMemoryStore()}, nil
}

func (brokenBackend) Close() error { return nil }

func TestEndSessionLogsFailure(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	a := &app{sessions: session.NewManager(brokenBackend{})}
	sess, err := a.sessions.Start()
	require.NoError(t, err)

	a.endSession(sess.ID)

	require.Zero(t, a.sessions.Len())
	require.Contains(t, logs.String(), `"msg":"failed to end session"`)
	require.Contains(t, logs.String(), `"session":"`+sess.ID+`"`)
	require.Contains(t, logs.String(), "disk on fire")
}
