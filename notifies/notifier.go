package notifies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/requests"
)

// Notification reports the end of a long running script.
type Notification struct {
	Info     requests.Info `json:"info"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
}

func (n Notification) Text() string {
	name := n.Info.Name
	if name == "" {
		name = "unnamed"
	}
	text := fmt.Sprintf("script #%d (%s) of %s %s, started %s, ran for %s",
		n.Info.Number,
		name,
		n.Info.User,
		n.Outcome,
		humanize.Time(n.Started),
		n.Duration.Round(time.Second),
	)
	if n.Error != "" {
		text += ": " + n.Error
	}
	return text
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct {
	Logger logs.Logger
}

var _ Notifier = LogNotifier{}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.Logger.WarnContext(ctx, "notification",
		"text", n.Text(),
	)
	return nil
}

type WebhookNotifier struct {
	URL    string
	Client nets.HTTPClient
}

var _ Notifier = new(WebhookNotifier)

type webhookBody struct {
	Text         string `json:"text"`
	Notification `json:"notification"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookBody{
		Text:         n.Text(),
		Notification: n,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook: %s", resp.Status)
	}
	return nil
}
