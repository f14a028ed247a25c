package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
	"price-stream/src/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxDrain bounds how much of a response body is read before closing it.
const maxDrain = 64 << 10

// ResetClient issues the feed's history reset over HTTP.
type ResetClient struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Client       *http.Client
	Logger       *logger.Logger
}

var _ interfaces.IResetClient = (*ResetClient)(nil)

// -----------------------------------------------------------------------------

func NewResetClient(cfg *models.MConfig, proxies interfaces.IProxyManager, log *logger.Logger) *ResetClient {
	if log == nil {
		log = logger.NewNop()
	}
	if proxies == nil {
		proxies = helpers.NewProxyManager(cfg.Network.Proxies, cfg.Network.UserAgent, log)
	}

	rc := &ResetClient{
		Config:       cfg,
		ProxyManager: proxies,
		Logger:       log,
	}
	rc.Client = rc.createClient()
	return rc
}

// -----------------------------------------------------------------------------

func (rc *ResetClient) createClient() *http.Client {
	transport := &http.Transport{
		Proxy:           rc.ProxyManager.ProxyFunc(),
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	timeout := rc.Config.Network.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// -----------------------------------------------------------------------------

// Reset POSTs to url with an empty body. Only a 2xx response is success; any
// other outcome comes back as *helpers.ResetError. There is no retry: the
// caller decides whether to try again.
func (rc *ResetClient) Reset(ctx context.Context, url string) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "session.reset")
	span.SetAttributes(attribute.String("reset.url", url))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return helpers.NewResetError(0, err)
	}
	req.Header.Set("User-Agent", rc.ProxyManager.GetUserAgent())

	resp, err := rc.Client.Do(req)
	if err != nil {
		rc.Logger.Warning("Reset request to %s failed: %v", url, err)
		if rc.ProxyManager.HasProxies() {
			rc.ProxyManager.RotateProxy()
		}
		return helpers.NewResetError(0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rc.Logger.Warning("Reset rejected by %s: status %d", url, resp.StatusCode)
		return helpers.NewResetError(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	rc.Logger.Info("Reset accepted by %s", url)
	return nil
}
