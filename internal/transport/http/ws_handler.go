package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WSHandler struct {
	service  *app.QuizService
	authn    Authenticator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler accepts connections without an Origin header, from one of
// origins, or from the serving host.
func NewWSHandler(service *app.QuizService, authn Authenticator, log *zap.Logger, origins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		service: service,
		authn:   authn,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID  int `json:"questionId"`
	OptionIndex int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Missing []int  `json:"missing,omitempty"`
}

// ServeWS upgrades to a websocket and drives one quiz session. With caseId a
// new session is started and dropped when the socket closes unfinished; with
// sessionId an existing session is attached.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caseID, sessionID := q.Get("caseId"), q.Get("sessionId")
	if caseID == "" && sessionID == "" {
		http.Error(w, "missing caseId or sessionId", http.StatusBadRequest)
		return
	}
	token := q.Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	user, err := h.authn.CurrentUser(r.Context(), token)
	if err != nil {
		http.Error(w, domain.ErrAuthFailed.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var state app.State
	owned := sessionID == ""
	if owned {
		state, err = h.service.Start(ctx, user.ID, caseID)
	} else {
		state, err = h.service.State(ctx, sessionID, user.ID)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	sessionID = state.SessionID

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	push := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}
	reply := func(state app.State, err error) {
		if err != nil {
			push("error", toErrorPayload(err))
			return
		}
		push("state", state)
	}

	push("state", state)

	finished := state.Finished
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push("error", errorPayload{Message: "invalid select payload"})
				continue
			}
			state, err := h.service.SelectAnswer(ctx, sessionID, user.ID, payload.QuestionID, payload.OptionIndex)
			reply(state, err)
		case "next":
			state, err := h.service.Next(ctx, sessionID, user.ID)
			reply(state, err)
		case "previous":
			state, err := h.service.Previous(ctx, sessionID, user.ID)
			reply(state, err)
		case "finish":
			outcome, err := h.service.Finish(ctx, sessionID, user.ID)
			if err != nil {
				push("error", toErrorPayload(err))
				continue
			}
			finished = true
			push("result", outcome)
		default:
			push("error", errorPayload{Message: "unsupported message type"})
		}
	}

	if owned && !finished {
		_ = h.service.Abandon(ctx, sessionID, user.ID)
	}
	close(send)
	<-writerDone
}

func toErrorPayload(err error) errorPayload {
	var incomplete *domain.IncompleteQuizError
	if errors.As(err, &incomplete) {
		return errorPayload{Message: domain.ErrIncompleteQuiz.Error(), Missing: incomplete.Missing}
	}
	_, body := errorStatus(err)
	return errorPayload{Message: body.Error}
}
