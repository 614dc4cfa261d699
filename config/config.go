// Package config reads round and model files and the CLI settings.
//
// Round and model files may be YAML, TOML or JSON; the format follows the
// file extension. Every decoded file is checked with validator struct tags
// and then with the cross-field rules of its Validate method. Unknown keys
// are rejected in all three formats.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sentinel errors.
var (
	ErrFormat  = errors.New("config: unsupported file format")
	ErrInvalid = errors.New("config: invalid file")
)

// Format names a file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
	JSON Format = "json"
)

// FormatOf maps a file extension to its Format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".json":
		return JSON, nil
	}

	return "", fmt.Errorf("%w: %q", ErrFormat, path)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validated is implemented by every file type.
type validated interface {
	Validate() error
}

// decode strictly decodes data in format f into out.
func decode(data []byte, f Format, out any) error {
	switch f {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case TOML:
		md, err := toml.Decode(string(data), out)
		if err != nil {
			return err
		}
		if extra := md.Undecoded(); len(extra) > 0 {
			return fmt.Errorf("unknown keys %v", extra)
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrFormat, f)
	}

	return nil
}

// parse decodes then validates.
func parse(data []byte, f Format, out validated) error {
	if err := decode(data, f, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// load reads path and parses it in the format of its extension.
func load(path string, out validated) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err = parse(data, f, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}
