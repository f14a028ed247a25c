package helpers

import (
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"price-stream/src/interfaces"
	"price-stream/src/logger"
)

var _ interfaces.IProxyManager = (*ProxyManager)(nil)

// -----------------------------------------------------------------------------

// ProxyManager hands out the configured egress proxies in rotation.
// An empty list means direct connections.
type ProxyManager struct {
	proxies    []string
	userAgents []string
	index      int
	mu         sync.Mutex
	logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewProxyManager(proxies []string, userAgent string, log *logger.Logger) *ProxyManager {
	if log == nil {
		log = logger.NewNop()
	}

	var validProxies []string
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !ValidateProxy(p) {
			log.Warning("Ignoring invalid proxy %q", p)
			continue
		}
		validProxies = append(validProxies, FormatProxy(p))
	}

	var agents []string
	if userAgent != "" {
		agents = []string{userAgent}
	}

	return &ProxyManager{
		proxies:    validProxies,
		userAgents: agents,
		logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetCurrentProxy() (string, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) == 0 {
		return "", nil
	}
	return pm.proxies[pm.index], nil
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) RotateProxy() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) <= 1 {
		return
	}

	pm.index = (pm.index + 1) % len(pm.proxies)
	pm.logger.Info("Rotating proxy to: %s", pm.proxies[pm.index])
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetUserAgent() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if len(pm.userAgents) == 0 {
		return "Go-http-client/1.1"
	}
	return pm.userAgents[rand.Intn(len(pm.userAgents))]
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) HasProxies() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.proxies) > 0
}

// -----------------------------------------------------------------------------

// ProxyFunc adapts the current proxy to the shape http.Transport and
// websocket.Dialer expect. A nil func means no proxy at all.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	if !pm.HasProxies() {
		return nil
	}
	return func(*http.Request) (*url.URL, error) {
		current, err := pm.GetCurrentProxy()
		if err != nil || current == "" {
			return nil, err
		}
		return url.Parse(current)
	}
}

// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
func ValidateProxy(proxyStr string) bool {
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5"
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}
