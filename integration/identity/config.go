package identity

import "time"

// Config holds identity backend settings.
type Config struct {
	// URL is the backend base URL, e.g. https://project.supabase.co.
	URL string `env:"IDENTITY_URL"`
	// AnonKey is sent as the apikey header on every request.
	AnonKey string `env:"IDENTITY_ANON_KEY"`
	// SiteURL is the public origin used to build password reset links.
	SiteURL string `env:"IDENTITY_SITE_URL" envDefault:"http://localhost:8080"`
	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout time.Duration `env:"IDENTITY_REQUEST_TIMEOUT" envDefault:"20s"`
	// Mode selects the provider strategy: "gotrue" or "dev".
	Mode string `env:"IDENTITY_MODE" envDefault:"gotrue"`
	// DevSecret signs tokens minted by the development provider.
	DevSecret string `env:"IDENTITY_DEV_SECRET" envDefault:"authgate-dev-secret"`
}

// Provider strategies.
const (
	ModeGoTrue = "gotrue"
	ModeDev    = "dev"
)

// DefaultConfig returns defaults without backend credentials.
func DefaultConfig() Config {
	return Config{
		SiteURL:        "http://localhost:8080",
		RequestTimeout: 20 * time.Second,
		Mode:           ModeGoTrue,
		DevSecret:      "authgate-dev-secret",
	}
}

// Configured reports whether backend credentials are present.
func (c Config) Configured() bool {
	return c.URL != "" && c.AnonKey != ""
}
