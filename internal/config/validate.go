package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDropbox(); err != nil {
		return err
	}
	if err := c.validateOrganize(); err != nil {
		return err
	}
	if err := c.validateDevices(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDropbox() error {
	if c.Dropbox.AccessToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/camroll/config.toml"
		}
		return fmt.Errorf("dropbox.access_token is required. Set DROPBOX_ACCESS_TOKEN env var or edit %s (create with 'camroll config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Dropbox.APIURL, "http://") && !strings.HasPrefix(c.Dropbox.APIURL, "https://") {
		return fmt.Errorf("dropbox.api_url must be an http(s) URL, got %q", c.Dropbox.APIURL)
	}
	if !strings.HasPrefix(c.Dropbox.ContentURL, "http://") && !strings.HasPrefix(c.Dropbox.ContentURL, "https://") {
		return fmt.Errorf("dropbox.content_url must be an http(s) URL, got %q", c.Dropbox.ContentURL)
	}
	return nil
}

func (c *Config) validateOrganize() error {
	re, err := regexp.Compile(c.Organize.DatePattern)
	if err != nil {
		return fmt.Errorf("organize.date_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return errors.New("organize.date_pattern must contain a capture group for the month key")
	}
	return nil
}

func (c *Config) validateDevices() error {
	if strings.Contains(c.Devices.OtherFolder, "/") {
		return errors.New("devices.other_folder must be a single folder name")
	}
	if strings.Contains(c.Devices.VideoFolder, "/") {
		return errors.New("devices.video_folder must be a single folder name")
	}
	if c.Devices.VideoFolder != "" && strings.EqualFold(c.Devices.VideoFolder, c.Devices.OtherFolder) {
		return errors.New("devices.video_folder must differ from devices.other_folder")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if err := ensurePositiveMap(map[string]int{
		"tracker.poll_interval":       c.Tracker.PollInterval,
		"tracker.poll_concurrency":    c.Tracker.PollConcurrency,
		"organize.submit_concurrency": c.Organize.SubmitConcurrency,
		"dropbox.request_timeout":     c.Dropbox.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Tracker.MaxRounds < 0 {
		return errors.New("tracker.max_rounds must be >= 0")
	}
	if c.Tracker.Deadline < 0 {
		return errors.New("tracker.deadline must be >= 0")
	}
	if c.Tracker.MaxPollErrors < 0 {
		return errors.New("tracker.max_poll_errors must be >= 0")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case LedgerBackendFile, LedgerBackendSQLite:
		return nil
	default:
		return fmt.Errorf("ledger.backend must be %q or %q, got %q", LedgerBackendFile, LedgerBackendSQLite, c.Ledger.Backend)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive when notifications.ntfy_topic is set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
