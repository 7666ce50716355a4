package api

// Config is the API server configuration.
type Config struct {
	// Address to listen on (e.g., ":3978")
	ListenAddr string

	// BotID is the account id the bot replies from.
	BotID string
}
