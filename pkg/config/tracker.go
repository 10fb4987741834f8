package config

// TrackerConfig describes one configured Gazelle tracker.
type TrackerConfig struct {
	Name   string `koanf:"name"`
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
	// TokenAuth selects "token <key>" Authorization formatting. Some Gazelle
	// variants require it, others reject it, so it stays explicit per tracker.
	TokenAuth bool `koanf:"token_auth"`
}
