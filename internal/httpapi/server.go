package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/antoniostano/echoroom/internal/admission"
	"github.com/antoniostano/echoroom/internal/config"
	"github.com/antoniostano/echoroom/internal/llm"
	"github.com/antoniostano/echoroom/internal/observability"
	"github.com/antoniostano/echoroom/internal/persona"
	"github.com/antoniostano/echoroom/internal/turn"
)

const (
	headerAccessCode      = "X-Access-Code"
	maxRoundtablePersonas = 3
)

// TurnRunner is the slice of the pipeline the HTTP layer drives.
type TurnRunner interface {
	Run(ctx context.Context, req turn.Request) turn.Result
	RunStreaming(ctx context.Context, req turn.Request, onDelta llm.DeltaHandler) turn.Result
}

type Server struct {
	cfg      config.Config
	personas *persona.Library
	admit    *admission.Controller
	runner   TurnRunner
	metrics  *observability.Metrics
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, personas *persona.Library, admit *admission.Controller, runner TurnRunner, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		personas: personas,
		admit:    admit,
		runner:   runner,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections by default, so a
				// third-party page cannot drive someone's chat session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Post("/v1/roundtable", s.handleRoundtable)
	r.Get("/v1/diagnostics/usage", s.handleUsage)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Persona) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "persona is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = "anon"
	}

	clientID, rej := s.admit.Check(admission.CheckRequest{
		SessionID:  req.SessionID,
		ClientIP:   clientIP(r),
		AccessCode: r.Header.Get(headerAccessCode),
	})
	if rej != nil {
		s.rejectTurn(w, rej)
		return
	}
	w.Header().Set("X-Request-Id", clientID)

	p, err := s.personas.Load(req.Persona)
	if err != nil {
		s.respondPersonaError(w, err)
		return
	}

	res := s.runner.Run(r.Context(), turnRequest(p, req.Message, req.SessionID, 1))
	respondJSON(w, http.StatusOK, ChatResponse{Text: res.Text, Used: res.Used})
}

func (s *Server) handleRoundtable(w http.ResponseWriter, r *http.Request) {
	var req RoundtableRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if len(req.Personas) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "at least one persona is required")
		return
	}
	personas := req.Personas
	if len(personas) > maxRoundtablePersonas {
		personas = personas[:maxRoundtablePersonas]
	}

	clientID, rej := s.admit.Check(admission.CheckRequest{
		ClientIP:   clientIP(r),
		AccessCode: r.Header.Get(headerAccessCode),
	})
	if rej != nil {
		s.rejectTurn(w, rej)
		return
	}
	w.Header().Set("X-Request-Id", clientID)

	// Each participant answers in its own session so one roundtable
	// cannot pollute another's history.
	groupID := uuid.NewString()
	replies := make([]RoundtableReply, 0, len(personas))
	for _, id := range personas {
		p, err := s.personas.Load(id)
		if err != nil {
			replies = append(replies, RoundtableReply{Persona: id, Text: "Error: persona not found"})
			continue
		}
		sessionID := "rt-" + groupID + "-" + p.ID
		res := s.runner.Run(r.Context(), turnRequest(p, req.Message, sessionID, len(personas)))
		replies = append(replies, RoundtableReply{Persona: p.ID, Text: res.Text})
	}

	respondJSON(w, http.StatusOK, RoundtableResponse{Replies: replies})
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.admit.Snapshot())
}

func (s *Server) rejectTurn(w http.ResponseWriter, rej *admission.Rejection) {
	s.metrics.RecordRejection(string(rej.Reason))
	s.logger.Warn().Str("reason", string(rej.Reason)).Msg("turn rejected")

	status := http.StatusTooManyRequests
	switch rej.Reason {
	case admission.ReasonServicePaused:
		status = http.StatusServiceUnavailable
	case admission.ReasonUnauthorized:
		status = http.StatusUnauthorized
	}
	if rej.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rej.RetryAfter.Seconds()))))
	}
	respondError(w, status, string(rej.Reason), rej.Error())
}

func (s *Server) respondPersonaError(w http.ResponseWriter, err error) {
	if errors.Is(err, persona.ErrNotFound) || errors.Is(err, persona.ErrInvalid) {
		respondError(w, http.StatusBadRequest, "persona_not_found", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "persona_load_failed", err.Error())
}

func turnRequest(p persona.Persona, message, sessionID string, participants int) turn.Request {
	shots := make([]llm.Exchange, 0, len(p.FewShot))
	for _, s := range p.FewShot {
		shots = append(shots, llm.Exchange{User: s.User, Assistant: s.Assistant})
	}
	return turn.Request{
		PersonaID:        p.ID,
		PersonaName:      p.Name,
		PersonaStyle:     p.SpeakingStyle,
		FewShot:          shots,
		Message:          message,
		SessionID:        sessionID,
		ParticipantCount: participants,
	}
}

// clientIP prefers the first X-Forwarded-For hop so limits stick to the
// caller rather than the proxy in front of the service.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
