package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for parameter files with an unknown extension
var ErrUnsupportedFormat = errors.New("config: unsupported parameter file format")

// Format identifies a parameter file encoding
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Decode parses data over the defaults and clamps the result. Fields missing
// from data keep their default value.
func Decode(data []byte, format Format) (Params, error) {
	p := Default()
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &p)
	case FormatYAML:
		err = yaml.Unmarshal(data, &p)
	case FormatJSON:
		err = json.Unmarshal(data, &p)
	default:
		return Params{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Params{}, fmt.Errorf("failed to decode %s parameters: %w", format, err)
	}
	return p.Clamp(), nil
}

// Encode serializes parameters in the given format
func Encode(p Params, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(p)
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Load reads a parameter file
func Load(path string) (Params, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Params{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read parameter file: %w", err)
	}
	return Decode(data, format)
}

// Save writes a parameter file
func Save(path string, p Params) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(p, format)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
