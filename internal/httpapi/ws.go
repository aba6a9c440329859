package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/echoroom/internal/admission"
	"github.com/antoniostano/echoroom/internal/turn"
)

// wsEvent is the streaming envelope. One turn produces turn_start, zero
// or more text_delta events, and turn_end; rejected or malformed turns
// produce a single error event and leave the connection open.
type wsEvent struct {
	Type  string     `json:"type"`
	Delta string     `json:"delta,omitempty"`
	Text  string     `json:"text,omitempty"`
	Used  *turn.Used `json:"used,omitempty"`
	Code  string     `json:"code,omitempty"`
	Error string     `json:"error,omitempty"`
}

const (
	wsTypeTurnStart = "turn_start"
	wsTypeTextDelta = "text_delta"
	wsTypeTurnEnd   = "turn_end"
	wsTypeError     = "error"

	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 1 << 20
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ip := clientIP(r)
	// Browsers cannot set custom headers on websocket dials, so the
	// access code may also arrive as a query parameter.
	accessCode := r.Header.Get(headerAccessCode)
	if accessCode == "" {
		accessCode = r.URL.Query().Get("access_code")
	}

	conn.SetReadLimit(wsReadLimit)
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		// Turns run one at a time per connection, which keeps websocket
		// writes single-threaded.
		s.runStreamedTurn(r.Context(), conn, req, ip, accessCode)
	}
}

func (s *Server) runStreamedTurn(ctx context.Context, conn *websocket.Conn, req ChatRequest, ip, accessCode string) {
	write := func(ev wsEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(ev)
	}

	if strings.TrimSpace(req.Persona) == "" || strings.TrimSpace(req.Message) == "" {
		_ = write(wsEvent{Type: wsTypeError, Code: "invalid_request", Error: "persona and message are required"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = "anon"
	}

	_, rej := s.admit.Check(admission.CheckRequest{
		SessionID:  req.SessionID,
		ClientIP:   ip,
		AccessCode: accessCode,
	})
	if rej != nil {
		s.metrics.RecordRejection(string(rej.Reason))
		_ = write(wsEvent{Type: wsTypeError, Code: string(rej.Reason), Error: rej.Error()})
		return
	}

	p, err := s.personas.Load(req.Persona)
	if err != nil {
		_ = write(wsEvent{Type: wsTypeError, Code: "persona_not_found", Error: err.Error()})
		return
	}

	if err := write(wsEvent{Type: wsTypeTurnStart}); err != nil {
		return
	}
	res := s.runner.RunStreaming(ctx, turnRequest(p, req.Message, req.SessionID, 1), func(delta string) error {
		return write(wsEvent{Type: wsTypeTextDelta, Delta: delta})
	})
	// Deltas are raw provider output; the finalized text in turn_end is
	// what memory recorded.
	_ = write(wsEvent{Type: wsTypeTurnEnd, Text: res.Text, Used: &res.Used})
}
