package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading and saving.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrNoConfigFound    = errors.New("no configuration file found")
)

// DiscoveryOrder is the priority order for finding a config file in the
// working directory.
var DiscoveryOrder = []string{
	"credd.yaml",
	"credd.yml",
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads, validates, and merges the configuration file at path.
//
// The document is checked against the configuration schema before
// decoding, environment references like ${CREDD_API_KEY} are expanded,
// and include entries are resolved relative to the file and applied in
// sorted order. The returned config has passed Validate.
func Load(path string) (*Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := expandIncludes(cfg, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if result := Validate(cfg); !result.IsValid() {
		return nil, fmt.Errorf("%s: %w", path, result)
	}

	return cfg, nil
}

// LoadOrDefault loads the configuration at path, discovering one when
// path is empty. When no file exists anywhere, the built-in defaults
// are returned with an empty path.
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		discovered, err := Discover()
		if errors.Is(err, ErrNoConfigFound) {
			return Default(), "", nil
		}
		if err != nil {
			return nil, "", err
		}
		path = discovered
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Parse decodes YAML configuration bytes on top of Default, after
// schema validation and environment variable expansion. Includes are
// not expanded here; use Load for that.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := parseInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInto validates one YAML document and decodes it over cfg. Used
// for both the root file and include fragments.
func parseInto(cfg *Config, data []byte) error {
	expanded := []byte(ExpandEnvVars(string(data)))

	var doc any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: no YAML document", ErrEmptyFile)
	}

	if result := validateSchema(doc); !result.IsValid() {
		return result
	}

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

// readConfigFile reads path with stat checks so the common failure
// modes map onto the sentinel errors.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	return data, nil
}

// Save writes cfg to path as YAML using a write-then-rename so readers
// never observe a partial file. Parent directories are created as
// needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Discover finds a config file: the CREDD_CONFIG environment variable
// wins, then credd.yaml and credd.yml in the working directory.
func Discover() (string, error) {
	if envPath := os.Getenv("CREDD_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("CREDD_CONFIG points to non-existent file: %s", envPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	for _, name := range DiscoveryOrder {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: run 'credd init' to create one, or specify --config", ErrNoConfigFound)
}

// ExpandEnvVars expands environment variables in the input string.
// Supports ${VAR_NAME} and ${VAR_NAME:-default} syntax.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ResolvePath resolves a potentially relative path against a base
// directory, expanding a leading "~/" to the user's home directory.
func ResolvePath(baseDir, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(baseDir, targetPath)
}
