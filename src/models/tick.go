package models

// MTick is one accepted price observation and the timestamp label the feed reported for it.
type MTick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}
