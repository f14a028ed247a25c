// Package endpoint derives the live-feed and reset-control addresses from the host
// name the dashboard is served under.
package endpoint

import (
	"fmt"
	"strings"

	"price-stream/src/models"
)

// Convention is the fixed port-mapping convention between the dashboard and the feed service.
type Convention struct {
	WorkspaceDomain string
	FrontendPort    int
	ServicePort     int
	LocalHost       string
	StreamPath      string
	ResetPath       string
}

// Endpoints is the resolved pair of addresses.
type Endpoints struct {
	StreamURL string
	ResetURL  string
	Secure    bool
}

// DefaultConvention matches a feed service on 8080 behind a dashboard on 3000.
func DefaultConvention() Convention {
	return Convention{
		WorkspaceDomain: "app.github.dev",
		FrontendPort:    3000,
		ServicePort:     8080,
		LocalHost:       "localhost",
		StreamPath:      "/ws",
		ResetPath:       "/reset",
	}
}

// ConventionFromConfig maps the feed section of the config.
func ConventionFromConfig(cfg models.MFeedConfig) Convention {
	return Convention{
		WorkspaceDomain: cfg.WorkspaceDomain,
		FrontendPort:    cfg.FrontendPort,
		ServicePort:     cfg.ServicePort,
		LocalHost:       cfg.LocalHost,
		StreamPath:      cfg.StreamPath,
		ResetPath:       cfg.ResetPath,
	}
}

// Resolve returns the feed and reset addresses for host. Hosts under the workspace
// domain get their frontend port segment rewritten to the service port and secure
// schemes; anything else falls back to the plain local endpoint.
func Resolve(host string, conv Convention) Endpoints {
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")

	if h != "" && conv.WorkspaceDomain != "" && strings.Contains(h, strings.ToLower(conv.WorkspaceDomain)) {
		from := fmt.Sprintf("-%d.", conv.FrontendPort)
		to := fmt.Sprintf("-%d.", conv.ServicePort)
		backend := strings.Replace(h, from, to, 1)
		return Endpoints{
			StreamURL: "wss://" + backend + conv.StreamPath,
			ResetURL:  "https://" + backend + conv.ResetPath,
			Secure:    true,
		}
	}

	authority := fmt.Sprintf("%s:%d", conv.LocalHost, conv.ServicePort)
	return Endpoints{
		StreamURL: "ws://" + authority + conv.StreamPath,
		ResetURL:  "http://" + authority + conv.ResetPath,
	}
}
