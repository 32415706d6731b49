package repository

import (
	"context"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	applogger "ETFWatch/pkg/logger"
)

// DryRunGateway implements Gateway without a transport. Used by -dry-run, where no
// topic or brokers need to be configured.
type DryRunGateway struct {
	log  *applogger.Logger
	sent int
}

// NewDryRunGateway creates a gateway that only logs.
func NewDryRunGateway(log *applogger.Logger) repository.Gateway {
	return &DryRunGateway{log: log}
}

func (g *DryRunGateway) Send(_ context.Context, n models.Notification) error {
	g.sent++
	g.log.Info("dry run, notification not delivered",
		applogger.String("pipeline", string(n.Pipeline)),
		applogger.String("title", n.Title),
	)
	return nil
}

func (g *DryRunGateway) Close() error { return nil }
