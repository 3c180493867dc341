package feeders

import (
	"github.com/golobby/config/v3/pkg/feeder"
	"gopkg.in/yaml.v3"
)

// YamlFeeder feeds a configuration struct from a YAML file.
type YamlFeeder struct {
	feeder.Yaml
}

// NewYamlFeeder creates a YamlFeeder for filePath.
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{feeder.Yaml{Path: filePath}}
}

// FeedKey feeds target from the top-level YAML section named key, for Section.
func (y YamlFeeder) FeedKey(key string, target interface{}) error {
	return feedKey(y, key, target, yaml.Marshal, yaml.Unmarshal, "yaml")
}
