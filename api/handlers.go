package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gameinsight/dataset"
	"gameinsight/quota"
	"gameinsight/quota/domain"
	"gameinsight/session"

	"github.com/go-chi/chi/v5"
)

type datasetJSON struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

type createSessionResponse struct {
	SessionID          string      `json:"session_id"`
	Dataset            datasetJSON `json:"dataset"`
	SuggestedQuestions []string    `json:"suggested_questions"`
}

type askRequest struct {
	Question string `json:"question"`
}

type sourceJSON struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type askResponse struct {
	Allowed   bool         `json:"allowed"`
	Failed    bool         `json:"failed,omitempty"`
	Answer    string       `json:"answer,omitempty"`
	Message   string       `json:"message,omitempty"`
	Sources   []sourceJSON `json:"sources,omitempty"`
	Remaining int          `json:"remaining"`
	ResetAt   time.Time    `json:"reset_at"`
}

type quotaResponse struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type messageJSON struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type healthResponse struct {
	Status            string `json:"status"`
	QuestionsInFlight int    `json:"questions_in_flight"`
	QuestionsMax      int    `json:"questions_max,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	resp := healthResponse{Status: "ok"}
	if pi, ok := s.pool.(poolInfo); ok {
		resp.QuestionsInFlight = pi.InUse()
		resp.QuestionsMax = pi.Cap()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dataset.ErrDataUnavailable) {
			status = http.StatusServiceUnavailable
		}
		s.log.WithError(err).Error("create session failed")
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	snap := sess.Snapshot()
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:          sess.ID(),
		Dataset:            datasetJSON{Name: snap.Name, Path: snap.Path, ModTime: snap.ModTime.UTC()},
		SuggestedQuestions: sess.SuggestedQuestions(),
	})
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	reply, err := sess.Ask(r.Context(), req.Question)
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.log.WithError(err).Error("quota store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "quota store unavailable"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	quota.SetQuotaHeaders(w.Header(), s.quota.Policy(), domain.Decision{
		Allowed:   reply.Allowed,
		Remaining: reply.Remaining,
		ResetAt:   reply.ResetAt,
	}, s.now())

	status := http.StatusOK
	if !reply.Allowed {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, askResponse{
		Allowed:   reply.Allowed,
		Failed:    reply.Failed,
		Answer:    reply.Answer,
		Message:   reply.Message,
		Sources:   sources(reply.Sources),
		Remaining: reply.Remaining,
		ResetAt:   reply.ResetAt.UTC(),
	})
}

func (s *server) handleQuota(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	remaining, err := s.quota.RemainingRequests(r.Context(), sess.ID())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "quota store unavailable"})
		return
	}
	reset, err := s.quota.ResetTime(r.Context(), sess.ID())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "quota store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{
		Limit:     s.quota.Policy().MaxRequests,
		Remaining: remaining,
		ResetAt:   reset.UTC(),
	})
}

func (s *server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	history := sess.History()
	out := make([]messageJSON, 0, len(history))
	for _, m := range history {
		out = append(out, messageJSON{Role: string(m.Role), Content: m.Content, At: m.At.UTC()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return nil, false
	}
	return sess, true
}

func sources(docs []dataset.Document) []sourceJSON {
	if len(docs) == 0 {
		return nil
	}
	out := make([]sourceJSON, len(docs))
	for i, d := range docs {
		out[i] = sourceJSON{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
