// Package config provides application configuration: per-bot YAML
// files and process-wide environment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bot is one validated, immutable bot definition loaded from YAML.
// Optional fields receive defaults during Load; after Load the struct
// is never mutated.
type Bot struct {
	Nick    string `yaml:"nick"`
	Channel string `yaml:"channel"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	Password string `yaml:"password"`

	// WebSocketURL selects the IRC-over-WebSocket transport instead of
	// host/port when set.
	WebSocketURL string `yaml:"websocket_url"`

	// LLMNode is the backend endpoint: a full URL, a bare host (Ollama
	// default port assumed), or an env-var prefix.
	LLMNode     string  `yaml:"llm_node"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Prompt is a path to a prompt file or the inline prompt text.
	Prompt string `yaml:"prompt"`

	ReplyToAll *bool `yaml:"reply_to_all"`
	Chatter    *bool `yaml:"chatter"`

	// Teammates lists sibling bot nicks. LoadTeam fills it from the
	// other configs in the same environment when absent.
	Teammates []string `yaml:"teammates"`

	// HistorySize bounds the conversation context kept for prompts.
	HistorySize int `yaml:"history"`

	// MaxReconnects bounds reconnect attempts; 0 means retry forever.
	MaxReconnects int `yaml:"max_reconnects"`
}

// Defaults carried over from the bot engine's historical behavior.
const (
	DefaultPort        = 6667
	DefaultModel       = "llama3.2:3b"
	DefaultTemperature = 0.7
	DefaultHistorySize = 10
)

// Load reads and validates a single bot config file.
func Load(path string) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var bot Bot
	if err := yaml.Unmarshal(data, &bot); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	bot.applyDefaults()

	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return &bot, nil
}

// LoadTeam loads every *.yml config in the given directories, sorted
// by filename, and cross-populates teammate nick lists so bots know
// about their siblings.
func LoadTeam(dirs []string) ([]*Bot, error) {
	var paths []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("environment path %s is not a directory", dir)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.yml"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.yml configs found in %s", strings.Join(dirs, ", "))
	}

	bots := make([]*Bot, 0, len(paths))
	for _, path := range paths {
		bot, err := Load(path)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}

	for _, bot := range bots {
		if len(bot.Teammates) > 0 {
			continue
		}
		for _, other := range bots {
			if !strings.EqualFold(other.Nick, bot.Nick) {
				bot.Teammates = append(bot.Teammates, other.Nick)
			}
		}
	}
	return bots, nil
}

func (b *Bot) applyDefaults() {
	if b.Host == "" {
		b.Host = "localhost"
	}
	if b.Port == 0 {
		b.Port = DefaultPort
	}
	if b.Model == "" {
		b.Model = DefaultModel
	}
	if b.Temperature == 0 {
		b.Temperature = DefaultTemperature
	}
	if b.HistorySize == 0 {
		b.HistorySize = DefaultHistorySize
	}
	if b.ReplyToAll == nil {
		v := true
		b.ReplyToAll = &v
	}
	if b.Chatter == nil {
		v := true
		b.Chatter = &v
	}
}

// Validate checks that all required fields are present and coherent.
// Validation failures are fatal at startup, never at runtime.
func (b *Bot) Validate() error {
	if b.Nick == "" {
		return fmt.Errorf("nick cannot be empty")
	}
	if strings.ContainsAny(b.Nick, " ,") {
		return fmt.Errorf("nick %q contains illegal characters", b.Nick)
	}
	if b.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}
	if !strings.HasPrefix(b.Channel, "#") && !strings.HasPrefix(b.Channel, "&") {
		return fmt.Errorf("channel %q must start with # or &", b.Channel)
	}
	if b.Prompt == "" {
		return fmt.Errorf("prompt cannot be empty (file path or inline string)")
	}
	if b.Port <= 0 || b.Port > 65535 {
		return fmt.Errorf("port %d out of range", b.Port)
	}
	if b.Temperature < 0 || b.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", b.Temperature)
	}
	if b.HistorySize < 0 {
		return fmt.Errorf("history must be >= 0")
	}
	if b.MaxReconnects < 0 {
		return fmt.Errorf("max_reconnects must be >= 0")
	}
	return nil
}

// Settings holds process-wide configuration read from environment
// variables. One Settings value is shared by every bot in the team.
type Settings struct {
	// AdminAddr enables the admin HTTP API when non-empty, e.g.
	// "127.0.0.1:8420".
	AdminAddr string

	// DBPath enables the SQLite transcript archive when non-empty.
	DBPath string

	LogLevel string

	// SendInterval is the minimum spacing between outbound lines per
	// session (server flood control).
	SendInterval time.Duration

	// SendQueueSize bounds the per-session outbound queue.
	SendQueueSize int

	// LLMTimeout bounds each backend request.
	LLMTimeout time.Duration

	// ConnectTimeout bounds transport dialing.
	ConnectTimeout time.Duration
}

// LoadSettings reads process settings from environment variables.
func LoadSettings() Settings {
	return Settings{
		AdminAddr:      getEnv("CHORUS_ADMIN_ADDR", ""),
		DBPath:         getEnv("CHORUS_DB_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SendInterval:   getEnvDuration("CHORUS_SEND_INTERVAL", 2*time.Second),
		SendQueueSize:  getEnvInt("CHORUS_SEND_QUEUE_SIZE", 32),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		ConnectTimeout: getEnvDuration("CHORUS_CONNECT_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	// Bare numbers are seconds, matching the original LLM_TIMEOUT=60
	// convention.
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
