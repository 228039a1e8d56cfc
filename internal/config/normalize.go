package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGoogle()
	c.normalizeMessaging()
	c.normalizeUpload()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CredentialsDir) == "" {
		c.Paths.CredentialsDir = defaultCredentialsDir
	}
	if c.Paths.CredentialsDir, err = expandPath(c.Paths.CredentialsDir); err != nil {
		return fmt.Errorf("paths.credentials_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Bind) == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeGoogle() {
	if c.Google.ClientID == "" {
		c.Google.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.Google.ClientSecret == "" {
		c.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if strings.TrimSpace(c.Google.RedirectURL) == "" {
		c.Google.RedirectURL = defaultRedirectURL
	}
}

func (c *Config) normalizeMessaging() {
	c.Messaging.AllowedSender = strings.TrimSpace(c.Messaging.AllowedSender)
	c.Messaging.SendURL = strings.TrimSpace(c.Messaging.SendURL)
	if c.Messaging.RequestTimeout <= 0 {
		c.Messaging.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeUpload() {
	if strings.TrimSpace(c.Upload.CategoryID) == "" {
		c.Upload.CategoryID = defaultCategoryID
	}
	if c.Upload.ChunkMiB <= 0 {
		c.Upload.ChunkMiB = defaultChunkMiB
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.YtDlp) == "" {
		c.Tools.YtDlp = defaultYtDlpBinary
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
