// Package email sends transactional mail through the SendGrid v3 API and
// runs the daily check-in batch job.
package email

import (
	"github.com/pkg/errors"
)

// Config represents the transactional mail configuration.
type Config struct {
	APIKey    string
	BaseURL   string // default https://api.sendgrid.com/v3
	FromEmail string
	FromName  string
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("mail api key is required")
	}
	if c.FromEmail == "" {
		return errors.New("from email is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.sendgrid.com/v3"
	}
	return nil
}
