// Package probe seeds synthetic catalogs and checks a running server's
// feeds from the outside.
package probe

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config drives a probe run.
type Config struct {
	BaseURL string
	Token   string
	CityID  string
	Rounds  int
	Workers int
	Timeout time.Duration

	// VideoTarget and ProductTarget bound the feed lengths the server may return.
	VideoTarget   int
	ProductTarget int
}

// DefaultConfig matches a server started with default settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:9080",
		Rounds:        20,
		Workers:       runtime.NumCPU(),
		Timeout:       10 * time.Second,
		VideoTarget:   50,
		ProductTarget: 100,
	}
}

// Validate normalizes the base URL and rejects unusable settings.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.VideoTarget < 1 || c.ProductTarget < 1:
		return fmt.Errorf("%w: targets must be positive", ErrInvalidConfig)
	}
	return nil
}
