package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerbot/bot"
	"ledgerbot/metrics"

	"github.com/gin-gonic/gin"
)

// WebhookPayload is the WhatsApp Cloud API notification. GroupID and GroupName
// are not part of the Cloud API; the group bridge adds them to group messages.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					GroupID   string `json:"group_id"`
					GroupName string `json:"group_name"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// extractEvents keeps text messages only, in payload order.
func extractEvents(payload WebhookPayload, now time.Time) []bot.Event {
	var out []bot.Event

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if strings.TrimSpace(change.Field) != "messages" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, ct := range change.Value.Contacts {
				names[ct.WaID] = ct.Profile.Name
			}
			for _, m := range change.Value.Messages {
				if strings.ToLower(strings.TrimSpace(m.Type)) != "text" {
					continue
				}
				body := strings.TrimSpace(m.Text.Body)
				if body == "" {
					continue
				}
				from := strings.TrimSpace(m.From)
				ev := bot.Event{
					SenderID:   from,
					SenderName: names[from],
					Text:       body,
					MessageID:  strings.TrimSpace(m.ID),
					Timestamp:  parseUnix(m.Timestamp, now),
				}
				if gid := strings.TrimSpace(m.GroupID); gid != "" {
					ev.IsGroup = true
					ev.GroupID = gid
					ev.GroupName = strings.TrimSpace(m.GroupName)
				}
				out = append(out, ev)
			}
		}
	}

	return out
}

func parseUnix(v string, def time.Time) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Unix(sec, 0).UTC()
}

// verifyMetaSignature checks X-Hub-Signature-256 (sha256=<hex>) against the app secret.
func verifyMetaSignature(secret, header string, rawBody []byte) (bool, string) {
	sig := strings.TrimSpace(header)
	if sig == "" {
		return false, "missing X-Hub-Signature-256"
	}
	if !strings.HasPrefix(sig, "sha256=") {
		return false, "invalid X-Hub-Signature-256 format"
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
	if err != nil {
		return false, "invalid signature hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return false, "signature mismatch"
	}
	return true, ""
}

// GET /api/webhook
func WebhookVerify(c *gin.Context) {
	env := EnvInstance(c)
	if env.WebhookVerifyToken == "" {
		RespondError(c, "WEBHOOK_VERIFY_TOKEN not set", http.StatusInternalServerError)
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	tokenOK := subtle.ConstantTimeCompare([]byte(token), []byte(env.WebhookVerifyToken)) == 1

	env.Log.WithField("mode", mode).WithField("token_ok", tokenOK).Info("Webhook verification")

	if mode == "subscribe" && tokenOK && challenge != "" {
		c.String(http.StatusOK, "%s", challenge)
		return
	}
	RespondError(c, "forbidden", http.StatusForbidden)
}

// POST /api/webhook
func WebhookUpdate(c *gin.Context) {
	env := EnvInstance(c)

	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	if env.WebhookAppSecret != "" {
		if ok, reason := verifyMetaSignature(env.WebhookAppSecret, c.GetHeader("X-Hub-Signature-256"), raw); !ok {
			env.Log.WithField("reason", reason).Warn("Webhook signature rejected")
			RespondError(c, "forbidden: "+reason, http.StatusForbidden)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		RespondError(c, "invalid json", http.StatusBadRequest)
		return
	}

	events := extractEvents(payload, time.Now().UTC())

	// answer Meta right away; processing continues on the per-sender queues
	c.String(http.StatusOK, "EVENT_RECEIVED")

	for _, ev := range events {
		if !env.Limiter.Allow("sender:" + ev.SenderID) {
			env.Metrics.Dropped(metrics.DROP_RATE_LIMITED)
			env.Log.WithField("sender", ev.SenderID).Info("Sender rate limited, event dropped")
			continue
		}
		env.Dispatcher.Dispatch(ev)
	}
}
