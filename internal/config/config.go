// Package config loads the tool configuration file.
//
//	suffix: _Builder
//	outputFile: zz_generated.builders.go
//	exclude: ["**/mocks/**"]
//	workers: 8
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"shireesh.com/buildergen/internal/naming"
)

// FileName is the configuration file looked up in the working directory
// when no path is given.
const FileName = ".buildergen.yaml"

// DefaultOutputFile is the name of generated files.
const DefaultOutputFile = "zz_generated.builders.go"

// Config is the tool configuration.
type Config struct {
	Suffix     string   `yaml:"suffix,omitempty"`
	OutputFile string   `yaml:"outputFile,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`
	Workers    int      `yaml:"workers,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Suffix:     naming.DefaultSuffix,
		OutputFile: DefaultOutputFile,
	}
}

//go:embed schema.json
var schemaJSON []byte

var getSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	const schemaFile = "schema.json"
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaFile, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}
	return c.Compile(schemaFile)
})

// Load reads the configuration at path. A missing file yields the defaults
// unless required is set. Keys left out of the file keep their defaults.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks raw YAML against the configuration schema.
func Validate(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	data, err := sigsyaml.YAMLToJSON(raw)
	if err != nil {
		return fmt.Errorf("failed to convert to JSON: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	return schema.Validate(doc)
}

// Write stores cfg at path as YAML.
func Write(path string, cfg *Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := Validate(buf.Bytes()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
