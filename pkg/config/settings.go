package config

import "os"

// Environment variables read on every turn.
const (
	EnvInstructions   = "LLM_INSTRUCTIONS"
	EnvSearchEndpoint = "AZURE_SEARCH_API_ENDPOINT"
	EnvSearchIndex    = "AZURE_SEARCH_INDEX"
	EnvDeployment     = "AZURE_OPENAI_DEPLOYMENT_NAME"
)

// Environment variables read once when the completion client is built.
const (
	EnvOpenAIEndpoint = "AZURE_OPENAI_API_ENDPOINT"
	EnvOpenAIKey      = "AZURE_OPENAI_API_KEY"
	EnvOpenAIVersion  = "AZURE_OPENAI_API_VERSION"
)

// DefaultWelcome greets members joining a conversation.
const DefaultWelcome = "Hello and welcome to the Chat Completion Bot!"

// Settings drive a single turn.
type Settings struct {
	// Instructions seed the system turn of new conversations. Empty is valid.
	Instructions string `toml:"instructions"`

	// Deployment is the model (deployment) name sent to the completion service.
	Deployment string `toml:"deployment"`

	// Welcome is sent to members joining the conversation.
	Welcome string `toml:"welcome"`

	Search SearchConfig `toml:"search"`
}

// SearchConfig configures retrieval augmentation.
type SearchConfig struct {
	Endpoint string `toml:"endpoint"`
	Index    string `toml:"index"`
}

// Enabled reports whether both the endpoint and the index are set.
func (s SearchConfig) Enabled() bool {
	return s.Endpoint != "" && s.Index != ""
}

// Source provides the settings for the turn about to run.
type Source interface {
	Settings() Settings
}

// SourceFunc adapts a function to a Source.
type SourceFunc func() Settings

func (f SourceFunc) Settings() Settings {
	return f()
}

// EnvSource overlays the environment on Base each time Settings is called.
type EnvSource struct {
	Base Settings

	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

func (e EnvSource) Settings() Settings {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return overlayEnv(e.Base, lookup)
}

func overlayEnv(s Settings, lookup func(string) (string, bool)) Settings {
	if v, ok := lookup(EnvInstructions); ok {
		s.Instructions = v
	}
	if v, ok := lookup(EnvDeployment); ok {
		s.Deployment = v
	}
	if v, ok := lookup(EnvSearchEndpoint); ok {
		s.Search.Endpoint = v
	}
	if v, ok := lookup(EnvSearchIndex); ok {
		s.Search.Index = v
	}
	return s
}
