package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsInbound is a client frame: a chat message or an approval decision.
type wsInbound struct {
	Type     string `json:"type"` // "message" or "approve"
	Content  string `json:"content,omitempty"`
	Token    string `json:"token,omitempty"`
	Decision string `json:"decision,omitempty"`
}

// wsOutbound is a server frame.
type wsOutbound struct {
	Type     string `json:"type"` // "reply", "approval_request" or "error"
	ThreadID string `json:"thread_id,omitempty"`
	Content  string `json:"content,omitempty"`
	Token    string `json:"token,omitempty"`
	Tool     string `json:"tool,omitempty"`
}

// ChatWS serves an interactive chat session over a WebSocket. The connection
// owns one conversation thread; tool approvals happen in-stream as
// approval_request frames answered by approve frames.
func (h *Handler) ChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "httpapi").Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	threadID := ""
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Str("component", "httpapi").Err(err).Msg("websocket read ended")
			}
			return
		}

		var out wsOutbound
		switch in.Type {
		case "message":
			reply, err := h.chat.Send(r.Context(), threadID, in.Content)
			if err != nil {
				out = wsOutbound{Type: "error", Content: userFacing(err)}
				break
			}
			threadID = reply.ThreadID
			if reply.Pending != nil {
				out = wsOutbound{
					Type:     "approval_request",
					ThreadID: reply.ThreadID,
					Content:  reply.Pending.Question,
					Token:    reply.Pending.Token,
					Tool:     reply.Pending.Tool,
				}
			} else {
				out = wsOutbound{Type: "reply", ThreadID: reply.ThreadID, Content: reply.Text}
			}
		case "approve":
			reply, err := h.chat.Resolve(r.Context(), in.Token, in.Decision)
			if err != nil {
				out = wsOutbound{Type: "error", Content: err.Error()}
				break
			}
			out = wsOutbound{Type: "reply", ThreadID: reply.ThreadID, Content: reply.Text}
		default:
			out = wsOutbound{Type: "error", Content: "unknown frame type"}
		}

		if err := conn.WriteJSON(out); err != nil {
			log.Debug().Str("component", "httpapi").Err(err).Msg("websocket write failed")
			return
		}
	}
}

func userFacing(err error) string {
	log.Error().Str("component", "httpapi").Err(err).Msg("websocket turn failed")
	return "sorry, something went wrong handling that message"
}
