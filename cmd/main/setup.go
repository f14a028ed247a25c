package main

import (
	"context"

	"price-stream/src/config"
	"price-stream/src/helpers"
	"price-stream/src/logger"
	"price-stream/src/metrics"
	"price-stream/src/network"
	"price-stream/src/session"
	"price-stream/src/stream"
	"price-stream/src/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// -----------------------------------------------------------------------------

func setupMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(reg)
}

// -----------------------------------------------------------------------------

func setupTracing(ctx context.Context, conf *config.Config, log *logger.Logger) (func(context.Context) error, error) {
	return telemetry.InitTracer(ctx, conf.Telemetry, conf.Name, version, log.Named("telemetry"))
}

// -----------------------------------------------------------------------------

func setupSession(conf *config.Config, m *metrics.Metrics, log *logger.Logger) *session.Controller {
	proxies := helpers.NewProxyManager(conf.Network.Proxies, conf.Network.UserAgent, log.Named("proxy"))

	dialer := stream.NewDialer(stream.OptionsFromConfig(conf.Stream, proxies), log.Named("stream"), m)
	resetClient := network.NewResetClient(conf.MConfig, proxies, log.Named("reset"))

	opts := session.OptionsFromConfig(conf.MConfig)
	log.Info("Feed endpoints resolved: stream=%s reset=%s", opts.StreamURL, opts.ResetURL)

	return session.NewController(opts, dialer, resetClient, log.Named("session"), m)
}
