package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	Web           WebConfig           `yaml:"web"`
	Conversations ConversationsConfig `yaml:"conversations"`
	Scan          ScanConfig          `yaml:"scan"`
	LogLevel      string              `yaml:"log_level"`
}

type AgentConfig struct {
	CommandURL string `yaml:"command_url"`
	ChannelURL string `yaml:"channel_url"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ConversationsConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type ScanConfig struct {
	TickInterval     time.Duration `yaml:"tick_interval"`
	CompleteHold     time.Duration `yaml:"complete_hold"`
	LongRunningTools []string      `yaml:"long_running_tools"`
}

// Load reads the optional yaml config file, then .env, then environment
// variables, later sources overriding earlier ones.
func Load() (*Config, error) {
	cfg := &Config{
		Agent: AgentConfig{
			CommandURL: "http://localhost:5000/agent/command",
			ChannelURL: "ws://localhost:5000/ws",
		},
		Web: WebConfig{
			ListenAddr: ":8081",
		},
		Conversations: ConversationsConfig{
			BaseURL: "http://localhost:5000",
		},
		Scan: ScanConfig{
			TickInterval:     time.Second,
			CompleteHold:     3 * time.Second,
			LongRunningTools: []string{"NmapScanner", "nmap_scan", "port_scanner"},
		},
		LogLevel: "info",
	}

	if path := envOr("CONFIG_FILE", "config.yaml"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// .env is optional: a missing file is fine, the environment still applies
	_ = godotenv.Load()

	cfg.Agent.CommandURL = envOr("AGENT_COMMAND_URL", cfg.Agent.CommandURL)
	cfg.Agent.ChannelURL = envOr("AGENT_CHANNEL_URL", cfg.Agent.ChannelURL)
	cfg.Web.ListenAddr = envOr("WEB_LISTEN_ADDR", cfg.Web.ListenAddr)
	cfg.Conversations.BaseURL = envOr("CONVERSATIONS_URL", cfg.Conversations.BaseURL)
	cfg.Conversations.Token = envOr("CONVERSATIONS_TOKEN", cfg.Conversations.Token)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("SCAN_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scan.TickInterval = d
		}
	}
	if v := os.Getenv("SCAN_COMPLETE_HOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scan.CompleteHold = d
		}
	}
	if v := os.Getenv("SCAN_LONG_RUNNING_TOOLS"); v != "" {
		cfg.Scan.LongRunningTools = splitList(v)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
