package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// SendSlackMsg sends a simple message to a channel via an "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (eng *Engine) SendSlackMsg(ctx context.Context, msg string) error {
	// loosely based on: https://golangcode.com/send-slack-messages-without-a-library/
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eng.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

// notifySlack sends a moderation notification, best effort. Messages beyond
// the rate limit are silently dropped so a flood of auto-flags can not DoS
// the webhook.
func (eng *Engine) notifySlack(ctx context.Context, msg string) {
	if eng.SlackWebhookURL == "" {
		return
	}
	eng.slackOnce.Do(func() {
		eng.slackLimiter = rate.NewLimiter(rate.Limit(1), 10)
	})
	if !eng.slackLimiter.Allow() {
		return
	}
	if err := eng.SendSlackMsg(ctx, msg); err != nil {
		slackErrorCount.Inc()
		eng.Logger.Warn("sending slack notification", "err", err)
	}
}
