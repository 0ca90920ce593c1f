package summit

import "github.com/cassiomorais/summitpay/internal/infrastructure/config"

// Mode selects between the sandbox and live Summit environments.
type Mode string

const (
	ModeTest       Mode = "test"
	ModeProduction Mode = "production"
)

const (
	DefaultTestHost       = "https://pktest.takoleasy.si"
	DefaultProductionHost = "https://pk.takoleasy.si"
)

// Credentials are the acquirer secrets. Every outbound request uses the key of the active mode.
type Credentials struct {
	TestKey       string
	ProductionKey string
	Mode          Mode
	WebhookSecret string
}

// APIKey returns the key for the active mode.
func (c Credentials) APIKey() string {
	if c.Mode == ModeProduction {
		return c.ProductionKey
	}
	return c.TestKey
}

// CredentialsFromConfig reads the acquirer section of the service config.
func CredentialsFromConfig(cfg config.SummitConfig) Credentials {
	mode := ModeProduction
	if cfg.Testing {
		mode = ModeTest
	}
	return Credentials{
		TestKey:       cfg.TestAPIKey,
		ProductionKey: cfg.ProductionAPIKey,
		Mode:          mode,
		WebhookSecret: cfg.WebhookSecret,
	}
}
