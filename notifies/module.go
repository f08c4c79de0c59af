package notifies

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/scriptdconfigs"
)

type Module struct {
	dscope.Module
	Logs    logs.Module
	Nets    nets.Module
	Configs scriptdconfigs.Module
}

// Notifier posts to the configured webhook, or logs when there is none.
func (Module) Notifier(
	logger logs.Logger,
	webhook scriptdconfigs.NotifyWebhook,
	client nets.HTTPClient,
) Notifier {
	if webhook == "" {
		return LogNotifier{
			Logger: logger,
		}
	}
	return &WebhookNotifier{
		URL:    string(webhook),
		Client: client,
	}
}
