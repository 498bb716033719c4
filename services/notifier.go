// services/notifier.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"skport-checkin/models"
	"skport-checkin/utils"
)

// Notifier delivers a finished run somewhere. Delivery is best-effort:
// callers log the returned error and move on.
type Notifier interface {
	Notify(ctx context.Context, summary models.RunSummary) error
}

const (
	discordUsername  = "SKPort Auto Check In"
	discordAvatarURL = "https://i.imgur.com/ZC1qsD5.png"
	discordTitle     = "Check-in completed!"

	ColorAllSuccess = 5763719
	ColorHasFailure = 15548997

	// Discord webhook limits
	maxFieldsPerEmbed  = 25
	maxEmbedsPerPost   = 10
	maxFieldNameLen    = 256
	maxFieldValueLen   = 1024
	maxEmbedChars      = 6000
	discordFooterFmt   = "1/2/2006, 3:04:05 PM"
	discordMentionText = "Script encountered an error, please check logs!"
)

type DiscordPayload struct {
	Username  string         `json:"username"`
	AvatarURL string         `json:"avatar_url"`
	Content   string         `json:"content,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []DiscordField `json:"fields"`
	Footer DiscordFooter  `json:"footer"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

// DiscordNotifier posts run summaries to a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	UserID     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewDiscordNotifier(webhookURL, userID string, httpClient *http.Client, logger *zap.Logger) *DiscordNotifier {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordNotifier{
		WebhookURL: webhookURL,
		UserID:     userID,
		HTTPClient: httpClient,
		Logger:     logger,
	}
}

func (n *DiscordNotifier) Notify(ctx context.Context, summary models.RunSummary) error {
	payloads := BuildDiscordPayloads(summary.Results, n.UserID, summary.FinishedAt)
	for i, payload := range payloads {
		if err := n.post(ctx, payload); err != nil {
			return fmt.Errorf("discord message %d/%d: %w", i+1, len(payloads), err)
		}
	}
	n.Logger.Info("[NOTIFY] 📨 Discord report sent", zap.Int("messages", len(payloads)))
	return nil
}

func (n *DiscordNotifier) post(ctx context.Context, payload DiscordPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// BuildDiscordPayloads renders a batch into one or more webhook messages.
// The color reflects whether every account succeeded, and the mention is only
// added to the first message when something failed and a user id is set.
func BuildDiscordPayloads(batch models.RunBatch, userID string, at time.Time) []DiscordPayload {
	color := ColorAllSuccess
	allSuccess := batch.AllSucceeded()
	if !allSuccess {
		color = ColorHasFailure
	}
	footer := DiscordFooter{Text: fmt.Sprintf("Time: %s (UTC)", at.UTC().Format(discordFooterFmt))}

	fields := make([]DiscordField, 0, len(batch))
	for _, r := range batch {
		rewards := r.Rewards
		if rewards == "" {
			rewards = rewardsNone
		}
		fields = append(fields, DiscordField{
			Name:   truncate(r.Name, maxFieldNameLen),
			Value:  truncate(fmt.Sprintf("**Status:** %s\n**Rewards:**\n%s", r.Status, rewards), maxFieldValueLen),
			Inline: true,
		})
	}

	newEmbed := func(continued bool) DiscordEmbed {
		title := discordTitle
		if continued {
			title = discordTitle + " (continued)"
		}
		return DiscordEmbed{Title: title, Color: color, Fields: []DiscordField{}, Footer: footer}
	}

	// Fields are packed in order; an embed is closed when it reaches the
	// field cap or the next field would push it over the character cap.
	embeds := []DiscordEmbed{newEmbed(false)}
	for _, f := range fields {
		cur := &embeds[len(embeds)-1]
		if len(cur.Fields) > 0 &&
			(len(cur.Fields) >= maxFieldsPerEmbed || embedLen(*cur)+fieldLen(f) > maxEmbedChars) {
			embeds = append(embeds, newEmbed(true))
			cur = &embeds[len(embeds)-1]
		}
		cur.Fields = append(cur.Fields, f)
	}

	// The character cap also applies to all embeds of one message combined.
	var payloads []DiscordPayload
	msgLen := 0
	for _, e := range embeds {
		n := embedLen(e)
		if len(payloads) == 0 ||
			len(payloads[len(payloads)-1].Embeds) >= maxEmbedsPerPost || msgLen+n > maxEmbedChars {
			payloads = append(payloads, DiscordPayload{Username: discordUsername, AvatarURL: discordAvatarURL})
			msgLen = 0
		}
		last := &payloads[len(payloads)-1]
		last.Embeds = append(last.Embeds, e)
		msgLen += n
	}

	if !allSuccess && userID != "" {
		payloads[0].Content = fmt.Sprintf("<@%s> %s", userID, discordMentionText)
	}
	return payloads
}

// embedLen counts the characters Discord charges against the embed limit.
func embedLen(e DiscordEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Footer.Text)
	for _, f := range e.Fields {
		n += fieldLen(f)
	}
	return n
}

func fieldLen(f DiscordField) int {
	return utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
