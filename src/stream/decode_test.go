package stream

import (
	"testing"

	"price-stream/src/helpers"
	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTick_Valid(t *testing.T) {
	tick, err := DecodeTick([]byte(`{"price":50000.5,"timestamp":"10:00:00","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, models.MTick{Value: 50000.5, Label: "10:00:00"}, tick)

	tick, err = DecodeTick([]byte(`{"price":0,"timestamp":""}`))
	require.NoError(t, err)
	assert.Equal(t, models.MTick{}, tick)
}

func TestDecodeTick_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `garbage`,
		"array":             `[1,2]`,
		"null":              `null`,
		"missing price":     `{"timestamp":"10:00:00"}`,
		"missing timestamp": `{"price":1}`,
		"string price":      `{"price":"1","timestamp":"10:00:00"}`,
		"numeric timestamp": `{"price":1,"timestamp":12}`,
		"overflow":          `{"price":1e400,"timestamp":"x"}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTick([]byte(frame))
			assert.ErrorIs(t, err, helpers.ErrMalformedMessage)
		})
	}
}
