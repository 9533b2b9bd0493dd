package notify

import (
	"context"
	"fmt"

	"SignalForge/pkg/model"
	"SignalForge/pkg/platform/httpclient"
)

// Discord posts a text message to a Discord webhook
type Discord struct {
	url    string
	client *httpclient.Client
}

func NewDiscord(url string, client *httpclient.Client) *Discord {
	return &Discord{url: url, client: client}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, signal model.Signal) error {
	payload := map[string]string{
		"content": fmt.Sprintf("New Signal: `%s`\n%s", signal.Recommendation, messageBody(signal)),
	}
	return d.client.PostJSON(ctx, d.url, payload, nil)
}

// Webhook posts the raw signal JSON to an arbitrary endpoint
type Webhook struct {
	url    string
	client *httpclient.Client
}

func NewWebhook(url string, client *httpclient.Client) *Webhook {
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "custom_webhook" }

func (w *Webhook) Send(ctx context.Context, signal model.Signal) error {
	return w.client.PostJSON(ctx, w.url, signal, nil)
}
