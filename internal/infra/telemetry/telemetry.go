package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/village-admin/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	appInfo *prometheus.GaugeVec
}

// Attach registers process-level collectors and returns a provider handle.
// Per-request metrics are owned by the HTTP middleware.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	appInfo := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "village",
		Name:      "app_info",
		Help:      "Static application metadata, always 1.",
	}, []string{"name", "env"})
	appInfo.WithLabelValues(cfg.App.Name, cfg.App.Env).Set(1)

	return &Provider{appInfo: appInfo}, nil
}
