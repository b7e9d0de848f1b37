// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// from dotenv files. In a secrets directory each file is one secret: the
// filename is the key name and the trimmed contents are the value.
//
// Recognised keys: anthropic-api-key, cohere-api-key, redis-password.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Key names shared by the secrets directory and the dotenv mapping.
const (
	AnthropicAPIKey = "anthropic-api-key"
	CohereAPIKey    = "cohere-api-key"
	RedisPassword   = "redis-password"
)

// envNames maps dotenv variable names onto secret key names.
var envNames = map[string]string{
	"ANTHROPIC_API_KEY": AnthropicAPIKey,
	"COHERE_API_KEY":    CohereAPIKey,
	"REDIS_PASSWORD":    RedisPassword,
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv reads dotenv files and returns the recognised variables under
// their secret key names. Missing files are skipped.
func LoadEnv(paths ...string) (map[string]string, error) {
	out := make(map[string]string)
	for _, p := range paths {
		env, err := godotenv.Read(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading env file %s: %w", p, err)
		}
		for envName, key := range envNames {
			if v := strings.TrimSpace(env[envName]); v != "" {
				out[key] = v
			}
		}
	}
	return out, nil
}

// Resolve merges the secrets directory over the dotenv files. Files in dir
// win over dotenv values; process environment variables win over both.
func Resolve(dir string, envFiles ...string) (map[string]string, error) {
	merged, err := LoadEnv(envFiles...)
	if err != nil {
		return nil, err
	}
	fromDir, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for k, v := range fromDir {
		merged[k] = v
	}
	for envName, key := range envNames {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			merged[key] = v
		}
	}
	return merged, nil
}
