package jobdeck

import (
	"sync"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"github.com/jobdeck/jobdeck-go/pkg/apiclient"
)

var (
	cfg     Config
	cfgErr  error
	cfgOnce sync.Once
)

// Config aggregates the deployment-time settings of the client core.
type Config struct {
	API apiclient.Config

	// CredentialsPath locates the encrypted credential file used by the
	// default store backend.
	CredentialsPath string `env:"JOBDECK_CREDENTIALS_PATH" envDefault:".jobdeck/credentials"`
	// CredentialsSecret derives the encryption key for that file. It is
	// the host app's install-scoped secret, not a user password.
	CredentialsSecret string `env:"JOBDECK_CREDENTIALS_SECRET"`
}

// LoadConfig parses the environment once and caches the result for the
// process lifetime.
func LoadConfig() (Config, error) {
	cfgOnce.Do(func() {
		cfgErr = env.Parse(&cfg)
	})
	if cfgErr != nil {
		return Config{}, cfgErr
	}
	return cfg, nil
}
