// Package feeders provides configuration feeders for reading data from
// environment variables and JSON, YAML or TOML files.
package feeders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golobby/config/v3"
)

// Feeder is the golobby feeder contract.
type Feeder = config.Feeder

// KeyFeeder can feed a single top-level key of its source.
type KeyFeeder interface {
	Feeder
	FeedKey(key string, target interface{}) error
}

// ForFile picks a file feeder from the file extension.
func ForFile(path string) (KeyFeeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Section feeds only the value under Key of the wrapped source.
type Section struct {
	Source KeyFeeder
	Key    string
}

// Feed implements Feeder.
func (s Section) Feed(structure interface{}) error {
	return s.Source.FeedKey(s.Key, structure)
}

// feedKey is a common helper function for extracting specific keys from config files
func feedKey(
	feeder Feeder,
	key string,
	target interface{},
	marshalFunc func(interface{}) ([]byte, error),
	unmarshalFunc func([]byte, interface{}) error,
	fileType string,
) error {
	// Create a temporary map to hold all data
	var allData map[string]interface{}

	if err := feeder.Feed(&allData); err != nil {
		return fmt.Errorf("failed to read %s: %w", fileType, err)
	}

	value, exists := allData[key]
	if !exists {
		return fmt.Errorf("%w: %q in %s", ErrKeyNotFound, key, fileType)
	}

	// Remarshal and unmarshal to handle type conversions
	valueBytes, err := marshalFunc(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", fileType, err)
	}

	if err = unmarshalFunc(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", fileType, err)
	}

	return nil
}
