package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIKey             = "ANTHROPIC_API_KEY"
	EnvTimezone           = "TIMEZONE"
	EnvBusinessHoursStart = "BUSINESS_HOURS_START"
	EnvBusinessHoursEnd   = "BUSINESS_HOURS_END"
	EnvDefaultDuration    = "DEFAULT_DURATION"
	EnvMaxSuggestions     = "MAX_SUGGESTIONS"
	EnvPreferMorning      = "PREFER_MORNING"
	EnvAvoidLunch         = "AVOID_LUNCH"
	EnvModel              = "CLAUDE_MODEL"
	EnvMaxTokens          = "CLAUDE_MAX_TOKENS"
	EnvMaxToolRounds      = "CLAUDE_MAX_TOOL_ROUNDS"
	EnvDebug              = "DEBUG"
	EnvLogLevel           = "LOG_LEVEL"
	EnvHome               = "CLAUDE_MEET_HOME"
	EnvProjectConfigDir   = "CLAUDE_MEET_CONFIG_DIR"
)

// Defaults applied when a setting is absent or unparseable.
const (
	DefaultTimezone           = "Europe/Berlin"
	DefaultBusinessHoursStart = 9
	DefaultBusinessHoursEnd   = 17
	DefaultDuration           = 60
	DefaultMaxSuggestions     = 5
	DefaultModel              = "claude-sonnet-4-20250514"
	DefaultMaxTokens          = 2000
	DefaultMaxToolRounds      = 1
	DefaultLogLevel           = "INFO"
	DefaultProjectConfigDir   = "config"

	dirName          = ".claude-meet"
	tokenFile        = "token.json"
	credentialsFile  = "credentials.json"
	settingsFile     = "settings.env"
	apiKeyFile       = "anthropic_apikey.txt"
	clientSecretGlob = "client_secret*.json"
)

// Config holds the resolved application settings.
type Config struct {
	// Dir is the per-user directory holding the token, client secrets and settings file.
	Dir string

	// ProjectConfigDir holds the optional API-key and client-secret fallback files.
	ProjectConfigDir string

	// APIKey is the Anthropic API key; empty when none was found.
	APIKey string

	// APIKeySource describes where APIKey came from (env, settings, file).
	APIKeySource string

	Timezone           string
	BusinessHoursStart int
	BusinessHoursEnd   int

	// DefaultDuration is the meeting length in minutes used when a request names none.
	DefaultDuration int
	MaxSuggestions  int
	PreferMorning   bool
	AvoidLunch      bool

	Model         string
	MaxTokens     int
	MaxToolRounds int

	Debug    bool
	LogLevel string
}

// LoadSettings resolves every setting and never fails. The API key is filled
// in when one is found, but its absence is not an error here.
func LoadSettings() *Config {
	// A missing .env is the common case.
	_ = godotenv.Load()

	dir := os.Getenv(EnvHome)
	if dir == "" {
		dir = defaultDir()
	}

	settings, err := godotenv.Read(filepath.Join(dir, settingsFile))
	if err != nil {
		settings = map[string]string{}
	}

	src := source{getenv: os.Getenv, settings: settings}

	cfg := &Config{
		Dir:                dir,
		ProjectConfigDir:   src.getOrDefault(EnvProjectConfigDir, DefaultProjectConfigDir),
		Timezone:           src.getOrDefault(EnvTimezone, DefaultTimezone),
		BusinessHoursStart: src.getIntOrDefault(EnvBusinessHoursStart, DefaultBusinessHoursStart),
		BusinessHoursEnd:   src.getIntOrDefault(EnvBusinessHoursEnd, DefaultBusinessHoursEnd),
		DefaultDuration:    src.getIntOrDefault(EnvDefaultDuration, DefaultDuration),
		MaxSuggestions:     src.getIntOrDefault(EnvMaxSuggestions, DefaultMaxSuggestions),
		PreferMorning:      src.getBoolOrDefault(EnvPreferMorning, true),
		AvoidLunch:         src.getBoolOrDefault(EnvAvoidLunch, true),
		Model:              src.getOrDefault(EnvModel, DefaultModel),
		MaxTokens:          src.getIntOrDefault(EnvMaxTokens, DefaultMaxTokens),
		MaxToolRounds:      src.getIntOrDefault(EnvMaxToolRounds, DefaultMaxToolRounds),
		Debug:              src.getBoolOrDefault(EnvDebug, false),
		LogLevel:           strings.ToUpper(src.getOrDefault(EnvLogLevel, DefaultLogLevel)),
	}
	cfg.normalize()

	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		cfg.APIKey, cfg.APIKeySource = key, "environment"
	} else if key := strings.TrimSpace(settings[EnvAPIKey]); key != "" {
		cfg.APIKey, cfg.APIKeySource = key, cfg.SettingsPath()
	} else if key, path := readAPIKeyFile(cfg.ProjectConfigDir); key != "" {
		cfg.APIKey, cfg.APIKeySource = key, path
	}

	return cfg
}

// Load resolves the configuration and requires an Anthropic API key.
func Load() (*Config, error) {
	cfg := LoadSettings()
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{
			Setting: "Anthropic API key",
			Hint: fmt.Sprintf("Set %s or create %s",
				EnvAPIKey, filepath.Join(cfg.ProjectConfigDir, apiKeyFile)),
		}
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.BusinessHoursStart < 0 || c.BusinessHoursStart > 23 ||
		c.BusinessHoursEnd < 1 || c.BusinessHoursEnd > 24 ||
		c.BusinessHoursStart >= c.BusinessHoursEnd {
		c.BusinessHoursStart = DefaultBusinessHoursStart
		c.BusinessHoursEnd = DefaultBusinessHoursEnd
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = DefaultDuration
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = DefaultMaxSuggestions
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxToolRounds < 1 {
		c.MaxToolRounds = DefaultMaxToolRounds
	}
}

// TokenPath is the OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, tokenFile)
}

// CredentialsPath is the per-user OAuth client secrets file.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Dir, credentialsFile)
}

// SettingsPath is the per-user settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, settingsFile)
}

// ClientSecretPaths lists candidate OAuth client secret files in lookup order:
// the per-user credentials.json, then any client_secret*.json in the project
// config directory.
func (c *Config) ClientSecretPaths() []string {
	paths := []string{c.CredentialsPath()}
	matches, err := filepath.Glob(filepath.Join(c.ProjectConfigDir, clientSecretGlob))
	if err == nil {
		paths = append(paths, matches...)
	}
	return paths
}

// Location returns the configured timezone. An unknown zone name falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown timezone configured, using UTC", "timezone", c.Timezone)
		return time.UTC
	}
	return loc
}

// DefaultMeetingDuration returns DefaultDuration as a time.Duration.
func (c *Config) DefaultMeetingDuration() time.Duration {
	return time.Duration(c.DefaultDuration) * time.Minute
}

// Setting is one displayable row of the resolved configuration.
type Setting struct {
	Key   string
	Value string
}

// Settings returns the resolved configuration as ordered rows. The API key is masked.
func (c *Config) Settings() []Setting {
	apiKey := "(not set)"
	if c.APIKey != "" {
		apiKey = maskSecret(c.APIKey) + " (" + c.APIKeySource + ")"
	}
	return []Setting{
		{"Timezone", c.Timezone},
		{"Business hours", fmt.Sprintf("%02d:00-%02d:00", c.BusinessHoursStart, c.BusinessHoursEnd)},
		{"Default duration", fmt.Sprintf("%d minutes", c.DefaultDuration)},
		{"Max suggestions", strconv.Itoa(c.MaxSuggestions)},
		{"Prefer morning", strconv.FormatBool(c.PreferMorning)},
		{"Avoid lunch", strconv.FormatBool(c.AvoidLunch)},
		{"Model", c.Model},
		{"Max tokens", strconv.Itoa(c.MaxTokens)},
		{"Max tool rounds", strconv.Itoa(c.MaxToolRounds)},
		{"API key", apiKey},
		{"Debug", strconv.FormatBool(c.Debug)},
		{"Log level", c.LogLevel},
		{"Config directory", c.Dir},
	}
}

// ValidateTimezone checks that tz names a known IANA zone.
func ValidateTimezone(tz string) error {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}
	return nil
}

// SaveTimezone validates tz and writes it to the settings file. On validation
// failure the settings file is left untouched. The receiver is not modified;
// the new value takes effect on the next start.
func (c *Config) SaveTimezone(tz string) error {
	if err := ValidateTimezone(tz); err != nil {
		return err
	}
	return SaveSetting(c.SettingsPath(), EnvTimezone, strings.TrimSpace(tz))
}

// SaveSetting sets key=value in a KEY=value settings file, preserving other
// keys. The file may hold the API key, so it is always written with mode 0600.
func SaveSetting(path, key, value string) error {
	settings, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		settings = map[string]string{}
	}
	settings[key] = value

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content, err := godotenv.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	return nil
}

// SavedSetting returns a value stored in the settings file, ignoring the environment.
func SavedSetting(path, key string) (string, bool) {
	settings, err := godotenv.Read(path)
	if err != nil {
		return "", false
	}
	v, ok := settings[key]
	return v, ok
}

func readAPIKeyFile(projectDir string) (string, string) {
	path := filepath.Join(projectDir, apiKeyFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(string(b)), path
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 4) + s[len(s)-4:]
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}
