// Package web serves the support desk form over HTTP, plus a small JSON API
// with the same operations.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/comigor/support-agent/internal/desk"
	"github.com/comigor/support-agent/internal/llm"
	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/session"
	"github.com/comigor/support-agent/internal/ticket"
)

// SessionCookie carries the session id between requests.
const SessionCookie = "support_session"

// maxTicketBytes bounds request bodies; tickets are pasted text.
const maxTicketBytes = 1 << 20

// Server holds the HTTP handlers of the support desk.
type Server struct {
	desk     *desk.Service
	sessions *session.Manager
	tmpl     *template.Template
}

// NewServer wires the handlers to the desk and session manager.
func NewServer(d *desk.Service, sessions *session.Manager) *Server {
	return &Server{desk: d, sessions: sessions, tmpl: parseTemplates()}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /tickets", s.handleProcess)
	mux.HandleFunc("POST /history/clear", s.handleClear)
	mux.HandleFunc("GET /tickets/{number}/reply", s.handleDownload)

	mux.HandleFunc("POST /api/tickets", s.handleAPIProcess)
	mux.HandleFunc("GET /api/history", s.handleAPIHistory)
	mux.HandleFunc("DELETE /api/history", s.handleAPIClear)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return mux
}

type pageData struct {
	Sources  []ticket.Source
	Selected ticket.Source
	Text     string
	Notice   *desk.Notice
	Result   *desk.Entry
	History  []desk.Entry
}

// sessionFor resumes the caller's session, issuing a cookie for new ones.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, err := s.sessions.Resume(id)
	if err != nil {
		return nil, err
	}
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		logger.L.Error("session error", "err", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, sess, http.StatusOK, pageData{Selected: ticket.SourceEmail})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		logger.L.Error("session error", "err", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxTicketBytes)
	if err := r.ParseForm(); err != nil {
		logger.L.Error("read form error", "err", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	text := r.PostForm.Get("ticket")
	data := pageData{Text: text, Selected: ticket.SourceEmail}

	source, err := ticket.ParseSource(r.PostForm.Get("source"))
	if err == nil {
		data.Selected = source
		var entry desk.Entry
		entry, err = s.desk.Submit(r.Context(), sess, text, source)
		if err == nil {
			data.Result = &entry
		}
	}
	status := http.StatusOK
	if err != nil {
		notice := desk.Describe(err)
		data.Notice = &notice
		status = statusFor(err)
	}
	s.renderPage(w, sess, status, data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err == nil {
		err = s.desk.Clear(sess)
	}
	if err != nil {
		logger.L.Error("clear history error", "err", err)
		http.Error(w, "failed to clear history", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		logger.L.Error("session error", "err", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		http.Error(w, "invalid ticket number", http.StatusBadRequest)
		return
	}
	var entry desk.Entry
	if at := r.URL.Query().Get("at"); at != "" {
		nanos, perr := strconv.ParseInt(at, 10, 64)
		if perr != nil {
			http.Error(w, "invalid ticket timestamp", http.StatusBadRequest)
			return
		}
		entry, err = s.desk.TicketAt(sess, number, time.Unix(0, nanos))
	} else {
		entry, err = s.desk.Ticket(sess, number)
	}
	if err != nil {
		http.Error(w, desk.Describe(err).Message, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", desk.ReplyFilename(entry.Timestamp)))
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Reply)))
	w.Write([]byte(entry.Reply))
}

type processRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type errorResponse struct {
	Error desk.Notice `json:"error"`
}

func (s *Server) handleAPIProcess(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		logger.L.Error("session error", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTicketBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: desk.Notice{Level: desk.LevelWarning, Message: "invalid request body: " + err.Error()}})
		return
	}
	source, err := ticket.ParseSource(req.Source)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	entry, err := s.desk.Submit(r.Context(), sess, req.Text, source)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	var entries []desk.Entry
	if err == nil {
		entries, err = s.desk.History(sess)
	}
	if err != nil {
		logger.L.Error("history error", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []desk.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAPIClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err == nil {
		err = s.desk.Clear(sess)
	}
	if err != nil {
		logger.L.Error("clear history error", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderPage(w http.ResponseWriter, sess *session.Session, status int, data pageData) {
	data.Sources = ticket.Sources
	history, err := s.desk.History(sess)
	if err != nil {
		logger.L.Error("history error", "err", err)
	}
	data.History = history

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.L.Error("render error", "err", err)
	}
}

// statusFor maps desk errors onto HTTP status codes.
func statusFor(err error) int {
	var se *llm.ServiceError
	switch {
	case errors.Is(err, ticket.ErrEmptyTicket), errors.Is(err, ticket.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, desk.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Warn("write response error", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: desk.Describe(err)})
}
