package apiclient

import "time"

// Config holds deployment-time settings for the API client.
type Config struct {
	// BaseURL is the backend prefix, e.g. "https://api.jobdeck.app/v1".
	BaseURL string `env:"JOBDECK_API_BASE_URL,required"`
	// Timeout bounds each individual HTTP attempt (the refresh-and-retry
	// path may take up to three attempts).
	Timeout time.Duration `env:"JOBDECK_API_TIMEOUT" envDefault:"15s"`
}
