package endpoint

import (
	"testing"

	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	conv := DefaultConvention()

	cases := []struct {
		name   string
		host   string
		stream string
		reset  string
		secure bool
	}{
		{"localhost", "localhost", "ws://localhost:8080/ws", "http://localhost:8080/reset", false},
		{"empty host", "", "ws://localhost:8080/ws", "http://localhost:8080/reset", false},
		{"lan ip", "192.168.1.20", "ws://localhost:8080/ws", "http://localhost:8080/reset", false},
		{
			"codespace",
			"fluffy-space-abc-3000.app.github.dev",
			"wss://fluffy-space-abc-8080.app.github.dev/ws",
			"https://fluffy-space-abc-8080.app.github.dev/reset",
			true,
		},
		{
			"codespace upper case and trailing dot",
			"Fluffy-Space-ABC-3000.App.GitHub.dev.",
			"wss://fluffy-space-abc-8080.app.github.dev/ws",
			"https://fluffy-space-abc-8080.app.github.dev/reset",
			true,
		},
		{
			"codespace without frontend segment",
			"fluffy-space-abc-5173.app.github.dev",
			"wss://fluffy-space-abc-5173.app.github.dev/ws",
			"https://fluffy-space-abc-5173.app.github.dev/reset",
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.host, conv)
			assert.Equal(t, tc.stream, got.StreamURL)
			assert.Equal(t, tc.reset, got.ResetURL)
			assert.Equal(t, tc.secure, got.Secure)
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	conv := DefaultConvention()
	host := "x-3000.app.github.dev"
	assert.Equal(t, Resolve(host, conv), Resolve(host, conv))
}

func TestConventionFromConfig(t *testing.T) {
	conv := ConventionFromConfig(models.MFeedConfig{
		WorkspaceDomain: "preview.example.dev",
		FrontendPort:    5173,
		ServicePort:     9000,
		LocalHost:       "127.0.0.1",
		StreamPath:      "/feed",
		ResetPath:       "/admin/reset",
	})

	local := Resolve("127.0.0.1", conv)
	assert.Equal(t, "ws://127.0.0.1:9000/feed", local.StreamURL)
	assert.Equal(t, "http://127.0.0.1:9000/admin/reset", local.ResetURL)

	remote := Resolve("pr-42-5173.preview.example.dev", conv)
	assert.Equal(t, "wss://pr-42-9000.preview.example.dev/feed", remote.StreamURL)
	assert.Equal(t, "https://pr-42-9000.preview.example.dev/admin/reset", remote.ResetURL)
}
