package protocol

import (
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Rendaw/kademlia/kaderr"
	"github.com/Rendaw/kademlia/routing/kbucket"
)

// Config holds the configuration of an Engine.
type Config struct {
	BucketSize           int           // k, the bucket capacity and the number of nodes returned by find_node
	RequestTimeout       time.Duration // how long outbound calls wait for a response
	StaleAfter           time.Duration // how long a bucket may go untouched before it needs a refresh
	ReplacementCacheSize int           // the number of candidates remembered for each full bucket
	Clock                clock.Clock   // a clock that may be replaced by a mock when testing
	Rand                 io.Reader     // source of refresh ids, crypto/rand if nil
}

// Validate checks the configuration options and returns an error if any have invalid values.
func (cfg *Config) Validate() error {
	if cfg.BucketSize < 1 {
		return &kaderr.ConfigurationError{
			Component: "protocol.Config",
			Err:       fmt.Errorf("bucket size must be greater than zero"),
		}
	}

	if cfg.RequestTimeout < 1 {
		return &kaderr.ConfigurationError{
			Component: "protocol.Config",
			Err:       fmt.Errorf("request timeout must be greater than zero"),
		}
	}

	if cfg.Clock == nil {
		return &kaderr.ConfigurationError{
			Component: "protocol.Config",
			Err:       fmt.Errorf("clock must not be nil"),
		}
	}

	return nil
}

// DefaultConfig returns the default configuration options for an Engine.
// Options may be overridden before passing to New.
func DefaultConfig() *Config {
	return &Config{
		BucketSize:           20,
		RequestTimeout:       5 * time.Second,
		StaleAfter:           time.Hour,
		ReplacementCacheSize: 20,
		Clock:                clock.New(), // use standard time
	}
}

func (cfg *Config) tableConfig() *kbucket.Config {
	return &kbucket.Config{
		BucketSize:           cfg.BucketSize,
		StaleAfter:           cfg.StaleAfter,
		ReplacementCacheSize: cfg.ReplacementCacheSize,
		Clock:                cfg.Clock,
	}
}
