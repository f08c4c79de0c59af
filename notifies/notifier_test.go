package notifies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/configs"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/requests"
	"github.com/reusee/scriptd/scriptdconfigs"
)

var testNotification = Notification{
	Info: requests.Info{
		Number: 4,
		Name:   "scan",
		User:   "tester",
	},
	Started:  time.Now().Add(-time.Hour),
	Duration: time.Hour,
	Outcome:  "failed",
	Error:    "boom",
}

func TestText(t *testing.T) {
	text := testNotification.Text()
	for _, want := range []string{"#4", "scan", "tester", "failed", "1 hour ago", "1h0m0s", "boom"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %s", want, text)
		}
	}
}

func TestWebhook(t *testing.T) {
	got := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		got <- body
	}))
	defer server.Close()

	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		dscope.Provide(configs.NewLoader(nil, "")),
		func() scriptdconfigs.NotifyWebhook {
			return scriptdconfigs.NotifyWebhook(server.URL)
		},
	).Call(func(
		notifier Notifier,
	) {
		if _, ok := notifier.(*WebhookNotifier); !ok {
			t.Fatalf("got %T", notifier)
		}
		if err := notifier.Notify(context.Background(), testNotification); err != nil {
			t.Fatal(err)
		}
		body := <-got
		if text, _ := body["text"].(string); !strings.Contains(text, "scan") {
			t.Fatalf("got %v", body)
		}
	})
}

func TestLogNotifierByDefault(t *testing.T) {
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		dscope.Provide(configs.NewLoader(nil, "")),
	).Call(func(
		notifier Notifier,
	) {
		if _, ok := notifier.(LogNotifier); !ok {
			t.Fatalf("got %T", notifier)
		}
		if err := notifier.Notify(context.Background(), testNotification); err != nil {
			t.Fatal(err)
		}
	})
}
