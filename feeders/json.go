package feeders

import (
	"encoding/json"

	"github.com/golobby/config/v3/pkg/feeder"
)

// JSONFeeder feeds a configuration struct from a JSON file.
type JSONFeeder struct {
	feeder.Json
}

// NewJSONFeeder creates a JSONFeeder for filePath.
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{feeder.Json{Path: filePath}}
}

// FeedKey feeds target from the top-level JSON object named key, for Section.
func (j JSONFeeder) FeedKey(key string, target interface{}) error {
	return feedKey(j, key, target, json.Marshal, json.Unmarshal, "json")
}
