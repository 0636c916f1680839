package kbucket

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Rendaw/kademlia/kaderr"
)

// Config holds the configuration of a Table.
type Config struct {
	BucketSize           int           // the maximum number of nodes held by a bucket, usually called k
	StaleAfter           time.Duration // how long a bucket may go untouched before it is considered lonely
	ReplacementCacheSize int           // the number of candidates remembered for each full bucket
	Clock                clock.Clock   // a clock that may replaced by a mock when testing
}

// Validate checks the configuration options and returns an error if any have invalid values.
func (cfg *Config) Validate() error {
	if cfg.BucketSize < 1 {
		return &kaderr.ConfigurationError{
			Component: "kbucket.Config",
			Err:       fmt.Errorf("bucket size must be greater than zero"),
		}
	}

	if cfg.StaleAfter < 1 {
		return &kaderr.ConfigurationError{
			Component: "kbucket.Config",
			Err:       fmt.Errorf("stale after must be greater than zero"),
		}
	}

	if cfg.ReplacementCacheSize < 0 {
		return &kaderr.ConfigurationError{
			Component: "kbucket.Config",
			Err:       fmt.Errorf("replacement cache size must not be negative"),
		}
	}

	if cfg.Clock == nil {
		return &kaderr.ConfigurationError{
			Component: "kbucket.Config",
			Err:       fmt.Errorf("clock must not be nil"),
		}
	}

	return nil
}

// DefaultConfig returns the default configuration options for a Table.
// Options may be overridden before passing to New.
func DefaultConfig() *Config {
	return &Config{
		BucketSize:           20,
		StaleAfter:           time.Hour,
		ReplacementCacheSize: 20,
		Clock:                clock.New(), // use standard time
	}
}
