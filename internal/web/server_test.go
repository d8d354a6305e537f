package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comigor/support-agent/internal/desk"
	"github.com/comigor/support-agent/internal/history"
	"github.com/comigor/support-agent/internal/llm"
	"github.com/comigor/support-agent/internal/session"
	"github.com/comigor/support-agent/internal/ticket"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	summary string
	reply   string
	err     error
	calls   int
}

func (c *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if strings.HasPrefix(prompt, "Summarize") {
		return c.summary, nil
	}
	return c.reply, nil
}

var processedAt = time.Date(2026, 10, 16, 17, 45, 3, 0, time.UTC)

func newTestServer(t *testing.T, c ticket.Completer) (*httptest.Server, *http.Client) {
	t.Helper()
	var (
		mu   sync.Mutex
		next = processedAt
	)
	// each processed ticket is stamped one minute after the previous one
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Minute)
		return now
	}
	d := desk.New(ticket.NewProcessor(c, 3), 5, desk.WithClock(clock))
	srv := httptest.NewServer(NewServer(d, session.NewManager(history.MemoryBackend{})).Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", strings.NewReader(string(payload)))
	require.NoError(t, err)
	return resp
}

func TestIndex_IssuesSessionCookie(t *testing.T) {
	srv, client := newTestServer(t, &stubCompleter{})

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "AI Customer Support Agent")
	require.Contains(t, body, `<option value="Voice Transcript"`)
	require.NotContains(t, body, "Ticket History")

	u, _ := url.Parse(srv.URL)
	require.Len(t, client.Jar.Cookies(u), 1)
}

func TestFormProcess_EmptyTicket(t *testing.T) {
	c := &stubCompleter{summary: "s", reply: "r"}
	srv, client := newTestServer(t, c)

	resp, err := client.PostForm(srv.URL+"/tickets", url.Values{"source": {"Email"}, "ticket": {"   "}})
	require.NoError(t, err)
	body := readBody(t, resp)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "Please enter a support ticket")
	require.Zero(t, c.calls)
}

func TestFormProcess_RendersResultAndHistory(t *testing.T) {
	c := &stubCompleter{summary: "Customer is **upset** <script>alert(1)</script>", reply: "We are sorry."}
	srv, client := newTestServer(t, c)

	resp, err := client.PostForm(srv.URL+"/tickets", url.Values{"source": {"Chat"}, "ticket": {"My order #123 never arrived"}})
	require.NoError(t, err)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Ticket processed successfully!")
	require.Contains(t, body, "<strong>upset</strong>")
	require.NotContains(t, body, "<script>alert(1)</script>")
	require.Contains(t, body, fmt.Sprintf(`href="/tickets/1/reply?at=%d"`, processedAt.UnixNano()))
	require.Contains(t, body, "Ticket #1 - Chat (2026-10-16 17:45:03")
	require.Equal(t, 2, c.calls)
}

func TestFormClear_Redirects(t *testing.T) {
	srv, client := newTestServer(t, &stubCompleter{summary: "s", reply: "r"})

	resp, err := client.PostForm(srv.URL+"/tickets", url.Values{"source": {"Chat"}, "ticket": {"hi"}})
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = client.PostForm(srv.URL+"/history/clear", nil)
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path)
	require.NotContains(t, body, "Ticket History")
}

func TestAPI_ProcessDownloadClear(t *testing.T) {
	reply := "Dear customer,\n\nWe are very sorry — your parcel ships today.\n"
	srv, client := newTestServer(t, &stubCompleter{summary: "Late parcel.", reply: reply})

	resp := postJSON(t, client, srv.URL+"/api/tickets", processRequest{Text: "My order #123 never arrived", Source: ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry desk.Entry
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &entry))
	require.Equal(t, 1, entry.Number)
	require.Equal(t, ticket.SourceNone, entry.Source)
	require.Equal(t, "My order #123 never arrived", entry.Excerpt)
	require.Equal(t, reply, entry.Reply)

	resp, err := client.Get(srv.URL + "/tickets/1/reply")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="reply_20261016_174503.txt"`, resp.Header.Get("Content-Disposition"))
	require.Equal(t, reply, readBody(t, resp))

	resp, err = client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	var entries []desk.Entry
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &entries))
	require.Len(t, entries, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/history", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	require.JSONEq(t, "[]", readBody(t, resp))

	resp, err = client.Get(srv.URL + "/tickets/1/reply")
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ServiceFailure(t *testing.T) {
	c := &stubCompleter{err: &llm.ServiceError{Model: "m", Status: http.StatusUnauthorized, Err: errors.New("API key not valid")}}
	srv, client := newTestServer(t, c)

	resp := postJSON(t, client, srv.URL+"/api/tickets", processRequest{Text: "help", Source: "Email"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var out errorResponse
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &out))
	require.Equal(t, desk.ServiceHint, out.Error.Hint)
	require.Contains(t, out.Error.Message, "API key not valid")
	require.Equal(t, 1, c.calls)

	resp, err := client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	require.JSONEq(t, "[]", readBody(t, resp))
}

func TestAPI_UnknownSource(t *testing.T) {
	c := &stubCompleter{summary: "s", reply: "r"}
	srv, client := newTestServer(t, c)

	resp := postJSON(t, client, srv.URL+"/api/tickets", processRequest{Text: "help", Source: "Carrier Pigeon"})
	readBody(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Zero(t, c.calls)
}

func TestDownload_StaleLinkAfterClear(t *testing.T) {
	c := &stubCompleter{summary: "s", reply: "first reply"}
	srv, client := newTestServer(t, c)

	resp, err := client.PostForm(srv.URL+"/tickets", url.Values{"source": {"Chat"}, "ticket": {"first"}})
	require.NoError(t, err)
	body := readBody(t, resp)
	link := fmt.Sprintf("/tickets/1/reply?at=%d", processedAt.UnixNano())
	require.Contains(t, body, link)

	resp, err = client.Get(srv.URL + link)
	require.NoError(t, err)
	require.Equal(t, "first reply", readBody(t, resp))

	resp, err = client.PostForm(srv.URL+"/history/clear", nil)
	require.NoError(t, err)
	readBody(t, resp)
	c.reply = "second reply"
	resp, err = client.PostForm(srv.URL+"/tickets", url.Values{"source": {"Chat"}, "ticket": {"second"}})
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = client.Get(srv.URL + link)
	require.NoError(t, err)
	require.NotContains(t, readBody(t, resp), "second reply")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/tickets/1/reply?at=soon")
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionsDoNotShareHistory(t *testing.T) {
	srv, alice := newTestServer(t, &stubCompleter{summary: "s", reply: "r"})
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	bob := &http.Client{Jar: jar}

	resp := postJSON(t, alice, srv.URL+"/api/tickets", processRequest{Text: "hello", Source: "Chat"})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = bob.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	require.JSONEq(t, "[]", readBody(t, resp))
}
