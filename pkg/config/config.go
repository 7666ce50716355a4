// Package config loads the citebot configuration file and resolves the
// per-turn bot settings.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Provider names accepted in the configuration.
const (
	ProviderAzure  = "azure"
	ProviderVertex = "vertex"
)

// Storage backends accepted in the configuration.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendBolt      = "bolt"
	BackendFirestore = "firestore"
)

// Config is the complete citebot configuration.
type Config struct {
	Provider string        `toml:"provider"` // "azure" or "vertex"
	Server   ServerConfig  `toml:"server"`
	Storage  StorageConfig `toml:"storage"`
	OpenAI   OpenAIConfig  `toml:"openai"`
	Vertex   VertexConfig  `toml:"vertex"`

	// Bot holds the defaults for the per-turn settings. Environment variables
	// override these on every turn.
	Bot Settings `toml:"bot"`
}

// ServerConfig configures the HTTP channel.
type ServerConfig struct {
	// Address to listen on (e.g., ":3978")
	ListenAddr string `toml:"listen"`

	// BotID is the channel account id of the bot, used to skip greeting itself.
	BotID string `toml:"bot_id"`
}

// StorageConfig selects where transcripts are kept.
type StorageConfig struct {
	Backend string `toml:"backend"`

	// Path is the database file for the sqlite and bolt backends.
	Path string `toml:"path"`

	FirestoreProject    string `toml:"firestore_project"`
	FirestoreCollection string `toml:"firestore_collection"`
}

// OpenAIConfig configures the Azure OpenAI client.
type OpenAIConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	APIVersion string `toml:"api_version"`
}

// VertexConfig configures the Vertex AI (Gemini) client.
type VertexConfig struct {
	Project  string `toml:"project"`
	Location string `toml:"location"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider: ProviderAzure,
		Server: ServerConfig{
			ListenAddr: ":3978",
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
		},
		OpenAI: OpenAIConfig{
			APIVersion: "2024-10-21",
		},
		Vertex: VertexConfig{
			Location: "us-central1",
		},
		Bot: Settings{
			Welcome: DefaultWelcome,
		},
	}
}

// Load reads the TOML file at path over the defaults and then applies the
// client environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("could not decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvOpenAIEndpoint); ok {
		c.OpenAI.Endpoint = v
	}
	if v, ok := lookup(EnvOpenAIKey); ok {
		c.OpenAI.APIKey = v
	}
	if v, ok := lookup(EnvOpenAIVersion); ok && v != "" {
		c.OpenAI.APIVersion = v
	}
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAzure, ProviderVertex:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendBolt:
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return fmt.Errorf("storage.firestore_project must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}
