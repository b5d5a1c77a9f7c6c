package whatsapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/lovebot/internal/domain/model"
)

const (
	signatureHeader = "X-Twilio-Signature"
	maxPayloadBytes = 1 << 20
	emptyTwiML      = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
)

// Routes mounts the inbound webhook endpoints.
func (t *Transport) Routes(r chi.Router) {
	r.Post("/webhook/whatsapp", t.handleTwilio)
	r.Post("/webhook", t.handleJSON)
}

// handleTwilio accepts Twilio's form-encoded inbound message callback.
func (t *Transport) handleTwilio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	if t.cfg.ValidateSignature && !t.validSignature(r) {
		t.logger.WarnContext(r.Context(), "Rejected webhook with invalid Twilio signature", "remote_addr", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	payload := model.InboundPayload{
		From:    strings.TrimPrefix(r.PostForm.Get("From"), addressPrefix),
		GroupID: r.PostForm.Get("GroupId"),
		Body:    r.PostForm.Get("Body"),
		ID:      r.PostForm.Get("MessageSid"),
	}
	if payload.From == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	t.deliver(r, payload)

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}

// handleJSON accepts the generic {from, group_id, body, id} payload.
func (t *Transport) handleJSON(w http.ResponseWriter, r *http.Request) {
	var payload model.InboundPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json payload"})
		return
	}

	payload.From = strings.TrimPrefix(strings.TrimSpace(payload.From), addressPrefix)
	if payload.From == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from is required"})
		return
	}

	if !t.deliver(r, payload) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no subscriber"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (t *Transport) deliver(r *http.Request, payload model.InboundPayload) bool {
	msg := model.Message{
		SenderID:       payload.From,
		ConversationID: payload.ConversationID(),
		Content:        payload.Body,
		Timestamp:      time.Now().UTC(),
		ExternalID:     payload.ID,
	}
	t.logger.DebugContext(r.Context(), "Received WhatsApp message",
		"conversation_id", msg.ConversationID, "sender_id", msg.SenderID, "external_id", msg.ExternalID)
	return t.dispatcher.Dispatch(r.Context(), msg)
}

func (t *Transport) validSignature(r *http.Request) bool {
	sig := r.Header.Get(signatureHeader)
	if sig == "" || t.validator == nil {
		return false
	}

	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return t.validator.Validate(t.requestURL(r), params, sig)
}

// requestURL is the URL Twilio signed: the configured public URL, or the
// request's own URL when none is configured.
func (t *Transport) requestURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		return t.cfg.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
