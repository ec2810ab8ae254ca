package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/services/relay/internal/domain"
)

// maxBodyBytes caps webhook payloads.
const maxBodyBytes = 1 << 20

// SecretHeader carries the optional shared secret of the database webhook.
const SecretHeader = "X-Webhook-Secret"

// InsertHandler is satisfied by *service.NotificationService.
type InsertHandler interface {
	HandleInsert(ctx context.Context, e domain.InsertEvent) string
}

// WebhookHandler serves the database webhook and the WhatsApp verification
// handshake.
type WebhookHandler struct {
	relay         InsertHandler
	verifyToken   string
	webhookSecret string
	logger        *slog.Logger
}

func NewWebhookHandler(relay InsertHandler, verifyToken, webhookSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		relay:         relay,
		verifyToken:   verifyToken,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// equalSecret compares in constant time. An empty secret never matches.
func equalSecret(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// OrderInserted handles POST /api/webhook/orders. Any well-formed payload is
// acknowledged, whatever happens to the notification.
func (h *WebhookHandler) OrderInserted(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && !equalSecret(r.Header.Get(SecretHeader), h.webhookSecret) {
		httputil.WriteError(w, r, apperrors.Unauthorized("invalid webhook secret"), h.logger)
		return
	}

	var event domain.InsertEvent
	if err := decodeJSON(w, r, &event); err != nil {
		h.logger.WarnContext(r.Context(), "malformed webhook payload", slog.String("error", err.Error()))
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed webhook payload"), h.logger)
		return
	}

	h.relay.HandleInsert(r.Context(), event)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Verify handles GET /api/webhook/whatsapp, the subscription handshake:
// echo hub.challenge when hub.mode is subscribe and hub.verify_token matches.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && equalSecret(q.Get("hub.verify_token"), h.verifyToken) {
		httputil.WriteText(w, http.StatusOK, q.Get("hub.challenge"))
		return
	}
	h.logger.WarnContext(r.Context(), "webhook verification rejected", slog.String("mode", q.Get("hub.mode")))
	httputil.WriteText(w, http.StatusForbidden, "Forbidden")
}
