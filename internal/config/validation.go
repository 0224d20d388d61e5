package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct constraints and the cross-field rules validator
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return fmt.Errorf("scheduler task %q is enabled but has no schedule", name)
		}
	}

	if task, ok := c.Scheduler.Tasks["trend_digest"]; ok && task.Enabled {
		if len(c.Scheduler.TrendDigest.MediaIDs) == 0 {
			return fmt.Errorf("trend_digest is enabled but scheduler.trend_digest.media_ids is empty")
		}
		if c.Scheduler.TrendDigest.ChatID == 0 && c.Telegram.AdminUserID == 0 {
			return fmt.Errorf("trend_digest is enabled but has no chat to report to")
		}
	}

	return nil
}

// IsAdmin reports whether userID is the configured admin. An unset admin
// matches nobody.
func (c *Config) IsAdmin(userID int64) bool {
	return c.Telegram.AdminUserID != 0 && userID == c.Telegram.AdminUserID
}

// DigestChatID is the chat trend digests are sent to, defaulting to the
// admin's private chat.
func (c *Config) DigestChatID() int64 {
	if c.Scheduler.TrendDigest.ChatID != 0 {
		return c.Scheduler.TrendDigest.ChatID
	}
	return c.Telegram.AdminUserID
}
