package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/easyfitness/trainerbot/internal/observability/metrics"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

// MessageHandler runs one conversation turn and returns the reply to send.
type MessageHandler interface {
	HandleMessage(ctx context.Context, phone, text string) (string, error)
}

// Sender delivers the reply back to the customer.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// Handler serves the Cloud API webhook endpoints.
type Handler struct {
	verifyToken string
	engine      MessageHandler
	sender      Sender
	seen        *SeenCache
	metrics     *metrics.BotMetrics
	logger      *logging.Logger
}

// NewHandler wires the webhook. metrics may be nil.
func NewHandler(verifyToken string, engine MessageHandler, sender Sender, seen *SeenCache, m *metrics.BotMetrics, logger *logging.Logger) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		engine:      engine,
		sender:      sender,
		seen:        seen,
		metrics:     m,
		logger:      logger.Component("webhook"),
	}
}

// Verify answers the Cloud API subscription handshake.
// GET /webhook?hub.mode=subscribe&hub.verify_token=...&hub.challenge=...
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Falscher Token", http.StatusForbidden)
}

// Cloud API webhook envelope, trimmed to the fields the bot reads.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Receive processes inbound messages. It always responds 200: the Cloud API
// redelivers on any other status, and a message that failed once will fail
// the same way again.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("undecodable webhook payload", "error", err)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				h.process(r.Context(), msg)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) process(ctx context.Context, msg inboundMessage) {
	if msg.Type != "text" {
		h.metrics.ObserveInbound("ignored")
		h.logger.Debug("ignoring non-text message", "type", msg.Type, "from", msg.From)
		return
	}
	if h.seen.Seen(msg.ID) {
		h.metrics.ObserveInbound("duplicate")
		h.logger.Debug("duplicate message skipped", "message_id", msg.ID)
		return
	}

	start := time.Now()
	reply, err := h.engine.HandleMessage(ctx, msg.From, msg.Text.Body)
	if err != nil {
		h.metrics.ObserveInbound("error")
		h.metrics.ObserveTurnLatency("error", time.Since(start).Seconds())
		h.logger.Error("message handling failed", "from", msg.From, "error", err)
		return
	}
	h.metrics.ObserveTurnLatency("ok", time.Since(start).Seconds())

	if err := h.sender.SendText(ctx, msg.From, reply); err != nil {
		h.metrics.ObserveInbound("send_failed")
		h.logger.Error("reply delivery failed", "to", msg.From, "error", err)
		return
	}
	h.metrics.ObserveInbound("processed")
}
