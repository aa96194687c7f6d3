package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a model document from a YAML file. The document is decoded
// with yaml.v3 directly rather than viper: the filter fields rely on
// omitted-vs-false distinctions that viper's key flattening loses.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model document %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a model document from YAML bytes and validates it.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model document: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = LatestVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadEnv loads a .env file if one is present. Missing files are not an
// error; the process environment may already be populated.
func LoadEnv() {
	_ = godotenv.Load()
}

// EnvString returns a required environment variable.
func EnvString(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", name)
	}
	return v, nil
}

// EnvInt returns an integer environment variable, or fallback when unset.
func EnvInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", name, err)
	}
	return n, nil
}
