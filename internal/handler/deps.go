package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mmoclient/internal/app/user"
	"mmoclient/internal/configs"
)

// AppDeps groups what the development backend's handlers need.
type AppDeps struct {
	Config *configs.ServerConfig
	Store  *user.Store

	// Registry collects the backend's metrics and is served on /metrics.
	Registry *prometheus.Registry

	authAttempts *prometheus.CounterVec
}

// NewAppDeps wires a fresh registry and the handler metrics.
func NewAppDeps(cfg *configs.ServerConfig, store *user.Store) *AppDeps {
	reg := prometheus.NewRegistry()

	return &AppDeps{
		Config:   cfg,
		Store:    store,
		Registry: reg,
		authAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mmo_devserver_auth_attempts_total",
			Help: "Register and login attempts by outcome",
		}, []string{"operation", "outcome"}),
	}
}

func (d *AppDeps) countAuth(operation, outcome string) {
	d.authAttempts.WithLabelValues(operation, outcome).Inc()
}
