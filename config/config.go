// Package config loads the interview backend's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MCPServerConfig holds configuration for one external MCP tool server.
type MCPServerConfig struct {
	Name      string   `yaml:"name"`
	Command   string   `yaml:"command"`
	Arguments []string `yaml:"arguments,omitempty"`
}

// Config holds the complete backend configuration.
type Config struct {
	LLM struct {
		Provider  string `yaml:"provider"`
		Endpoint  string `yaml:"endpoint"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"llm"`

	Tools struct {
		FAQDatabase string `yaml:"faq_database"`
		DocsDir     string `yaml:"docs_dir"`
	} `yaml:"tools"`

	MCPServers []MCPServerConfig `yaml:"mcp_servers,omitempty"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a configuration with usable defaults.
func Default() *Config {
	cfg := &Config{}

	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 1000

	cfg.Tools.FAQDatabase = "faq.db"
	cfg.Tools.DocsDir = "docs"

	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080

	cfg.Logging.Level = "info"

	return cfg
}

// Load reads and parses the configuration file, applying defaults for
// anything the file leaves out.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validate checks that required fields are present and sane.
func (c *Config) validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	for i, srv := range c.MCPServers {
		if srv.Name == "" {
			return fmt.Errorf("mcp_servers[%d].name is required", i)
		}
		if srv.Command == "" {
			return fmt.Errorf("mcp_servers[%d].command is required", i)
		}
	}
	return nil
}
