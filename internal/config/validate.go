package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	if c.Deck.DefaultDurationSec <= 0 {
		return fmt.Errorf("deck.default_duration_sec must be > 0 (got %d)", c.Deck.DefaultDurationSec)
	}

	switch strings.ToLower(c.SRS.AdvanceOn) {
	case "know", "hard", "never":
	default:
		return fmt.Errorf("srs.advance_on must be one of know, hard, never (got %q)", c.SRS.AdvanceOn)
	}

	if c.Test.Settle < 0 {
		return fmt.Errorf("test.settle must be >= 0 (got %v)", c.Test.Settle)
	}
	if strings.TrimSpace(c.Test.CaptureCommand) == "" {
		return fmt.Errorf("test.capture_command must not be empty")
	}

	if strings.TrimSpace(c.Eval.URL) == "" {
		return fmt.Errorf("eval.url must not be empty")
	}
	if c.Eval.Timeout <= 0 {
		return fmt.Errorf("eval.timeout must be > 0 (got %v)", c.Eval.Timeout)
	}
	if c.Eval.SubmitPerMinute <= 0 {
		return fmt.Errorf("eval.submit_per_minute must be > 0 (got %d)", c.Eval.SubmitPerMinute)
	}

	return nil
}
