// Package config loads the shorturls configuration from a YAML file with
// environment variable overrides. A .env file, when present, is loaded
// before overrides are applied, so local development can avoid exporting
// variables by hand.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadEnvFiles loads .env files in priority order: the ENV_FILE variable
// wins, then .env.local, then .env. Missing files are not an error.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

// load reads a YAML config file, applies defaults, then applies env
// overrides. Environment variables are declared with `env` struct tags and
// always win over both file values and defaults.
func load(path string, setDefaults func(*Config)) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if setDefaults != nil {
		setDefaults(&cfg)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides uses struct tags to apply environment variable values.
// Tag format: `env:"VAR_NAME"`
func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyEnvToStruct(field)
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envVal := os.Getenv(envTag)
		if envVal == "" {
			continue
		}

		setFieldFromString(field, envVal)
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration values accept "30s" style strings
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
		} else {
			if i, err := strconv.ParseInt(val, 10, 64); err == nil {
				field.SetInt(i)
			}
		}

	case reflect.Bool:
		field.SetBool(parseBool(val))
	}
}

// parseBool parses a string as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// GetConfigPath returns the config path from CONFIG_PATH env var or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
