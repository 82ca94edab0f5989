package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

var errChatDown = errors.New("not connected to chat")

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", slog.String("component", "http"), slog.Any("err", err))
	}
}

// HandleHealthz is the liveness probe: plain "ok" while the database answers.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Store.Ping(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	Status      string `json:"status"`
	FailedCheck string `json:"failed_check,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HandleReadyz reports ready once the database answers and the bot is in chat.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	check, err := "database", h.opts.Store.Ping(r.Context())
	if err == nil {
		check = "chat"
		if h.opts.Bot == nil || !h.opts.Bot.Connected() {
			err = errChatDown
		}
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "not_ready", FailedCheck: check, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, readiness{Status: "ready"})
}

type statusResponse struct {
	Connected     bool      `json:"connected"`
	Channels      []string  `json:"channels"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Channels: []string{}}
	if b := h.opts.Bot; b != nil {
		started := b.StartedAt()
		resp.Connected = b.Connected()
		if chs := b.Channels(); chs != nil {
			resp.Channels = chs
		}
		resp.StartedAt = started.UTC()
		resp.UptimeSeconds = int64(h.now().Sub(started) / time.Second)
	}
	writeJSON(w, http.StatusOK, resp)
}
