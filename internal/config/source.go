package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Source resolves configuration values. Environment variables win over values read from
// the optional YAML file, which in turn win over the getter defaults.
type Source struct {
	file map[string]string
}

// LoadSource reads a YAML document of VAR: value pairs.
func LoadSource(path string) (*Source, error) {
	src := &Source{}
	if path == "" {
		return src, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config LoadSource] failed to read %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("[config LoadSource] failed to parse %s: %w", path, err)
	}

	src.file = make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		src.file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return src, nil
}

func (s *Source) Get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if s != nil {
		if value, ok := s.file[envVar]; ok && value != "" {
			return value
		}
	}
	return defaultValue
}

func (s *Source) Int(envVar string, defaultValue int) int {
	raw := s.Get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Warn().Str("var", envVar).Str("value", raw).Msg("ignoring invalid integer setting")
		return defaultValue
	}
	return value
}

func (s *Source) Bool(envVar string, defaultValue bool) bool {
	raw := s.Get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", raw).Msg("ignoring invalid boolean setting")
		return defaultValue
	}
	return value
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
