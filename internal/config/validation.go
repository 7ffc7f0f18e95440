package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"eve-hubarb/internal/engine"
)

var validate = validator.New()

// Validate checks field constraints and the cross-field rules.
// Every failure wraps engine.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrConfiguration, formatValidationError(err))
	}
	if c.Policy.UnrealisticMarginAction != "off" && c.Policy.UnrealisticMarginPercent <= 0 {
		return fmt.Errorf("%w: policy.unrealistic_margin_percent must be positive when action is %q",
			engine.ErrConfiguration, c.Policy.UnrealisticMarginAction)
	}
	if c.Monitor.Cycles > 1 && c.Monitor.Interval <= 0 {
		return fmt.Errorf("%w: monitor.cycles > 1 requires monitor.interval", engine.ErrConfiguration)
	}
	switch c.Rank.Dedupe {
	case "sqlite":
		if !c.Store.Enabled {
			return fmt.Errorf("%w: rank.dedupe=sqlite requires store.enabled", engine.ErrConfiguration)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: rank.dedupe=redis requires redis.addr", engine.ErrConfiguration)
		}
	}
	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')",
			strings.TrimPrefix(e.Namespace(), "Config."), e.Tag(), e.Value()))
	}
	return errors.New(strings.Join(messages, "; "))
}
