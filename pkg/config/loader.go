package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfigFileNames are searched, in order, by FindLocal.
var LocalConfigFileNames = []string{"gqlprobe.yaml", "gqlprobe.yml", ".gqlprobe.yaml", ".gqlprobe.yml"}

// FindLocal returns the first LocalConfigFileNames entry present in dir, or ""
// when there is none.
func FindLocal(dir string) string {
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the YAML file at path over Default(). The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes YAML over Default(). Unknown keys are rejected; path only
// labels errors.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &FileError{Path: path, Err: err}
	}
	return cfg, nil
}

// FileError is a configuration file that could not be decoded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return "invalid config: " + e.Err.Error()
	}
	return "invalid config " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }

// Is makes FileError match ErrInvalidConfig.
func (e *FileError) Is(target error) bool { return target == ErrInvalidConfig }
