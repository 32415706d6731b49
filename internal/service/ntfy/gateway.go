// Package ntfy delivers notifications to an ntfy topic.
package ntfy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	xhttp "ETFWatch/pkg/http"
)

const DefaultBaseURL = "https://ntfy.sh"

// ErrNoTopic is returned when the gateway was built without a topic.
var ErrNoTopic = errors.New("ntfy: topic not configured")

// Gateway implements repository.Gateway over HTTP.
type Gateway struct {
	url  string
	http *xhttp.Client
}

var _ repository.Gateway = (*Gateway)(nil)

func New(baseURL, topic string, timeout time.Duration) (*Gateway, error) {
	if topic == "" {
		return nil, ErrNoTopic
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		url:  strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(topic, "/"),
		http: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}, nil
}

// Send posts the body as plain text with title, priority and tags as headers.
func (g *Gateway) Send(ctx context.Context, n models.Notification) error {
	headers := map[string]string{
		"Content-Type": "text/plain; charset=utf-8",
		"Title":        n.Title,
	}
	if n.Priority != "" {
		headers["Priority"] = n.Priority
	}
	if len(n.Tags) > 0 {
		headers["Tags"] = strings.Join(n.Tags, ",")
	}

	err := g.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     g.url,
		Headers: headers,
		Body:    n.Body,
	}, nil)
	if err != nil {
		return fmt.Errorf("ntfy send %s: %w", n.Pipeline, err)
	}
	return nil
}

func (g *Gateway) Close() error { return nil }
