// Package config loads YAML configuration files into the config structs of
// the accessor packages.
//
// A typical file:
//
//	database:
//	  type: postgres
//	  postgres:
//	    connection:
//	      host: ${PG_HOST}
//	      password: ${PG_PASSWORD}
//	search:
//	  addresses: ["http://localhost:9200"]
//	kv:
//	  host: localhost
//	  keyPrefix: "app:"
//
// ${VAR} and $VAR references are replaced with environment variables before
// decoding. Variables from an optional .env file next to the working
// directory are loaded first and never override the real environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path into out, which must be a pointer.
// Unknown keys are rejected.
func Load(path string, out any, envFiles ...string) error {
	if err := LoadEnv(envFiles...); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Decode(raw, out); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Decode expands environment references in raw and decodes it into out.
func Decode(raw []byte, out any) error {
	expanded := os.ExpandEnv(string(raw))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

// LoadEnv loads the given .env files, or ".env" when none are given, into
// the process environment. Missing files are skipped; variables already set
// are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
