package stream

import (
	"encoding/json"
	"fmt"
	"math"

	"price-stream/src/helpers"
	"price-stream/src/models"
)

// wireRecord is the feed's frame shape. Pointers distinguish absent fields
// from zero values.
type wireRecord struct {
	Price     *float64 `json:"price"`
	Timestamp *string  `json:"timestamp"`
}

// DecodeTick parses one text frame into a tick. Unknown fields are ignored.
// Errors wrap helpers.ErrMalformedMessage.
func DecodeTick(data []byte) (models.MTick, error) {
	var rec wireRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.MTick{}, fmt.Errorf("%w: %v", helpers.ErrMalformedMessage, err)
	}
	if rec.Price == nil {
		return models.MTick{}, fmt.Errorf("%w: missing price", helpers.ErrMalformedMessage)
	}
	if rec.Timestamp == nil {
		return models.MTick{}, fmt.Errorf("%w: missing timestamp", helpers.ErrMalformedMessage)
	}
	if math.IsNaN(*rec.Price) || math.IsInf(*rec.Price, 0) {
		return models.MTick{}, fmt.Errorf("%w: non-finite price", helpers.ErrMalformedMessage)
	}

	return models.MTick{Value: *rec.Price, Label: *rec.Timestamp}, nil
}
