package feeders

import (
	"github.com/BurntSushi/toml"
	"github.com/golobby/config/v3/pkg/feeder"
)

// TomlFeeder feeds a configuration struct from a TOML file.
type TomlFeeder struct {
	feeder.Toml
}

// NewTomlFeeder creates a TomlFeeder for filePath.
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{feeder.Toml{Path: filePath}}
}

// FeedKey feeds target from the TOML table named key, for Section.
func (t TomlFeeder) FeedKey(key string, target interface{}) error {
	return feedKey(t, key, target, toml.Marshal, toml.Unmarshal, "toml")
}
