package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGoogle(); err != nil {
		return err
	}
	if err := c.validateMessaging(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Bind) == "" {
		return errors.New("paths.bind must be set")
	}
	return nil
}

func (c *Config) validateGoogle() error {
	// OAuth may be left unconfigured; account creation is rejected at runtime.
	if c.Google.RedirectURL == "" {
		return errors.New("google.redirect_url must be set")
	}
	if _, err := url.Parse(c.Google.RedirectURL); err != nil {
		return fmt.Errorf("google.redirect_url: %w", err)
	}
	return nil
}

func (c *Config) validateMessaging() error {
	if c.Messaging.RequestTimeout <= 0 {
		return errors.New("messaging.request_timeout must be positive")
	}
	if c.Messaging.SendURL != "" {
		if _, err := url.Parse(c.Messaging.SendURL); err != nil {
			return fmt.Errorf("messaging.send_url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.ChunkMiB <= 0 {
		return errors.New("upload.chunk_mib must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
