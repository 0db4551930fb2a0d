package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"edge_gate/internal/dataType"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	EnvRootDomain     = "EDGE_GATE_ROOT_DOMAIN"
	EnvFrontendDomain = "EDGE_GATE_FRONTEND_DOMAIN"
	EnvPort           = "EDGE_GATE_PORT"
)

type MainConfig struct {
	Port                 string                 `yaml:"port" validate:"required,numeric"`
	WebPath              string                 `yaml:"web_path" validate:"required,startswith=/"`
	LogPath              string                 `yaml:"log_path"`
	NodeName             string                 `yaml:"node_name"`
	RootDomain           string                 `yaml:"root_domain" validate:"required,hostname_rfc1123"`
	FrontendDomain       string                 `yaml:"frontend_domain" validate:"required,hostname_rfc1123"`
	Origin               string                 `yaml:"origin" validate:"omitempty,url"`
	StaticPath           string                 `yaml:"static_path" validate:"required_without=Origin"`
	FallbackPage         string                 `yaml:"fallback_page" validate:"required,startswith=/"`
	WhitelistMode        dataType.WhitelistMode `yaml:"whitelist_mode" validate:"required,oneof=disabled deny rewrite"`
	EmptyWhitelistPolicy dataType.EmptyPolicy   `yaml:"empty_whitelist_policy" validate:"required,oneof=allow_all deny_all"`
	Whitelist            []string               `yaml:"whitelist"`
	WhitelistFile        string                 `yaml:"whitelist_file"`
	ForwardedForHeaders  []string               `yaml:"forwarded_for_headers" validate:"dive,required"`
	EdgeBackend          string                 `yaml:"edge_backend"`
	DenyWindow           string                 `yaml:"deny_window" validate:"required"`
}

var validate = validator.New()

// DefaultMainConfig returns the values used for every key the file leaves out
func DefaultMainConfig() MainConfig {
	return MainConfig{
		Port:                 "25580",
		WebPath:              "/gate",
		LogPath:              "",
		NodeName:             "Edge Gate",
		StaticPath:           "./static",
		FallbackPage:         "/coming-soon.html",
		WhitelistMode:        dataType.ModeDisabled,
		EmptyWhitelistPolicy: dataType.EmptyAllowAll,
		ForwardedForHeaders:  []string{"X-Forwarded-For"},
		EdgeBackend:          "origin",
		DenyWindow:           "60s",
	}
}

// LoadMainConfig Read the configuration file and return the configuration object
func LoadMainConfig(basePath string) (*MainConfig, error) {
	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "gate.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg, err := decodeMainConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	applyEnvOverrides(cfg)

	if cfg.WhitelistFile != "" && !filepath.IsAbs(cfg.WhitelistFile) {
		cfg.WhitelistFile = filepath.Join(basePath, "config", cfg.WhitelistFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseMainConfig decodes and validates a YAML document without touching the
// filesystem or the environment
func ParseMainConfig(data []byte) (*MainConfig, error) {
	cfg, err := decodeMainConfig(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeMainConfig(data []byte) (*MainConfig, error) {
	cfg := DefaultMainConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for i, h := range cfg.ForwardedForHeaders {
		cfg.ForwardedForHeaders[i] = strings.TrimSpace(h)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *MainConfig) {
	if v := os.Getenv(EnvRootDomain); v != "" {
		cfg.RootDomain = v
	}
	if v := os.Getenv(EnvFrontendDomain); v != "" {
		cfg.FrontendDomain = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Port = v
	}
}

// Validate checks the struct tags and reports every failing key by its yaml name
func (cfg *MainConfig) Validate() error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RuleSet stores everything the router needs, built once per process
type RuleSet struct {
	RootDomain     string
	FrontendDomain string
	Mode           dataType.WhitelistMode
	FallbackPage   string
	Whitelist      *dataType.Whitelist
}

// LoadRules parses the whitelist from the config list and the optional whitelist file
func LoadRules(cfg *MainConfig) (*RuleSet, error) {
	entries := make([]string, 0, len(cfg.Whitelist))
	entries = append(entries, cfg.Whitelist...)

	if cfg.WhitelistFile != "" {
		fileEntries, err := loadIPRules(cfg.WhitelistFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read whitelist file %s: %w", cfg.WhitelistFile, err)
		}
		entries = append(entries, fileEntries...)
	}

	return &RuleSet{
		RootDomain:     cfg.RootDomain,
		FrontendDomain: cfg.FrontendDomain,
		Mode:           cfg.WhitelistMode,
		FallbackPage:   cfg.FallbackPage,
		Whitelist:      dataType.NewWhitelist(entries, cfg.EmptyWhitelistPolicy),
	}, nil
}

// loadIPRules read the IP rule file, one address or CIDR per line
func loadIPRules(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}

	return entries, scanner.Err()
}
