// Package httpapi provides HTTP handlers for the Switchboard API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/chatbot"
	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
	"github.com/normanking/switchboard/internal/supervisor"
)

// Handler serves the chat and research endpoints.
type Handler struct {
	gateway  llm.Provider
	chat     *chatbot.Service
	pipeline *supervisor.Service
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(gateway llm.Provider, chat *chatbot.Service, pipeline *supervisor.Service) *Handler {
	return &Handler{gateway: gateway, chat: chat, pipeline: pipeline}
}

// Router builds the chi router with all routes and middleware attached.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Post("/chat", h.Chat)
	r.Post("/chat/approve", h.Approve)
	r.Get("/chat/ws", h.ChatWS)
	r.Post("/research", h.Research)
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type chatRequest struct {
	Message      string `json:"message"`
	ThreadID     string `json:"thread_id,omitempty"`
	ToolApproval string `json:"tool_approval,omitempty"`
}

type pendingPayload struct {
	Token    string `json:"token"`
	Tool     string `json:"tool"`
	Question string `json:"question"`
}

type chatResponse struct {
	ThreadID string          `json:"thread_id"`
	Reply    string          `json:"reply,omitempty"`
	Pending  *pendingPayload `json:"pending,omitempty"`
}

// Health reports service liveness and gateway reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"provider":  h.gateway.Name(),
		"available": h.gateway.Available(),
	})
}

// Chat runs one conversational turn. When the logical agent proposes a tool
// and no up-front approval decision was supplied, the response carries the
// pending proposal for the client to resolve via /chat/approve.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.chat.Chat(r.Context(), req.ThreadID, req.Message, req.ToolApproval)
	if err != nil {
		writeChatError(w, err)
		return
	}
	JSON(w, http.StatusOK, toChatResponse(reply))
}

type approveRequest struct {
	Token    string `json:"token"`
	Decision string `json:"decision"`
}

// Approve resolves a pending tool proposal.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		Error(w, http.StatusBadRequest, "token is required")
		return
	}

	reply, err := h.chat.Resolve(r.Context(), req.Token, req.Decision)
	if err != nil {
		// Unknown or spent tokens are a client mistake, not a failure.
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	JSON(w, http.StatusOK, toChatResponse(reply))
}

type researchRequest struct {
	Task string `json:"task"`
}

type researchResponse struct {
	Reply       string            `json:"reply"`
	FinalReport string            `json:"final_report,omitempty"`
	MultiAgent  bool              `json:"multi_agent"`
	Transcript  []researchMessage `json:"transcript"`
}

type researchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Research runs one task through the research pipeline.
func (h *Handler) Research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		Error(w, http.StatusBadRequest, "task is required")
		return
	}

	out, err := h.pipeline.Run(r.Context(), req.Task)
	if err != nil {
		var exhausted *graph.RoutingExhaustedError
		if errors.As(err, &exhausted) {
			Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeChatError(w, err)
		return
	}

	resp := researchResponse{
		Reply:       out.Reply(),
		FinalReport: out.FinalReport,
		MultiAgent:  out.MultiAgent,
	}
	for _, msg := range out.Messages {
		resp.Transcript = append(resp.Transcript, researchMessage{Role: msg.Role, Content: msg.Content})
	}
	JSON(w, http.StatusOK, resp)
}

func toChatResponse(reply *chatbot.Reply) chatResponse {
	resp := chatResponse{ThreadID: reply.ThreadID, Reply: reply.Text}
	if reply.Pending != nil {
		resp.Pending = &pendingPayload{
			Token:    reply.Pending.Token,
			Tool:     reply.Pending.Tool,
			Question: reply.Pending.Question,
		}
	}
	return resp
}

// writeChatError maps workflow failures onto HTTP status codes. Gateway
// outages are 502, everything else a plain 500.
func writeChatError(w http.ResponseWriter, err error) {
	log.Error().Str("component", "httpapi").Err(err).Msg("request failed")
	if llm.AsGatewayError(err) {
		Error(w, http.StatusBadGateway, "language model unavailable")
		return
	}
	Error(w, http.StatusInternalServerError, "internal error")
}
