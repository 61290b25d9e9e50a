package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDropbox()
	c.normalizeOrganize()
	c.normalizeDevices()
	c.normalizeTracker()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	if err := c.normalizeMirror(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDropbox() {
	c.Dropbox.AccessToken = strings.TrimSpace(c.Dropbox.AccessToken)
	if c.Dropbox.AccessToken == "" {
		if value, ok := os.LookupEnv("DROPBOX_ACCESS_TOKEN"); ok {
			c.Dropbox.AccessToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("AUTH_TOKEN"); ok {
			c.Dropbox.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Dropbox.APIURL = strings.TrimRight(strings.TrimSpace(c.Dropbox.APIURL), "/")
	if c.Dropbox.APIURL == "" {
		c.Dropbox.APIURL = defaultDropboxAPIURL
	}
	c.Dropbox.ContentURL = strings.TrimRight(strings.TrimSpace(c.Dropbox.ContentURL), "/")
	if c.Dropbox.ContentURL == "" {
		c.Dropbox.ContentURL = defaultDropboxContentURL
	}
	if c.Dropbox.RequestTimeout <= 0 {
		c.Dropbox.RequestTimeout = defaultDropboxTimeout
	}
	if c.Dropbox.RetryAttempts <= 0 {
		c.Dropbox.RetryAttempts = 1
	}
}

func (c *Config) normalizeOrganize() {
	c.Organize.Root = NormalizeRemotePath(c.Organize.Root)
	if c.Organize.Root == "" {
		c.Organize.Root = defaultOrganizeRoot
	}
	c.Organize.DatePattern = strings.TrimSpace(c.Organize.DatePattern)
	if c.Organize.DatePattern == "" {
		c.Organize.DatePattern = defaultDatePattern
	}
	if c.Organize.SubmitConcurrency <= 0 {
		c.Organize.SubmitConcurrency = 1
	}
}

func (c *Config) normalizeDevices() {
	models := make([]string, 0, len(c.Devices.PhoneModels))
	for _, model := range c.Devices.PhoneModels {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	c.Devices.PhoneModels = models
	c.Devices.OtherFolder = strings.Trim(strings.TrimSpace(c.Devices.OtherFolder), "/")
	if c.Devices.OtherFolder == "" {
		c.Devices.OtherFolder = defaultOtherFolder
	}
	c.Devices.VideoFolder = strings.Trim(strings.TrimSpace(c.Devices.VideoFolder), "/")
	c.Devices.VideoExtensions = normalizeExtensions(c.Devices.VideoExtensions)
	c.Devices.SkipExtensions = normalizeExtensions(c.Devices.SkipExtensions)
}

func (c *Config) normalizeTracker() {
	if c.Tracker.PollInterval <= 0 {
		c.Tracker.PollInterval = defaultPollInterval
	}
	if c.Tracker.PollConcurrency <= 0 {
		c.Tracker.PollConcurrency = 1
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		name := defaultLedgerFile
		if c.Ledger.Backend == LedgerBackendSQLite {
			name += ".db"
		}
		c.Ledger.Path = filepath.Join(c.Paths.StateDir, name)
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMirror() error {
	c.Mirror.RemotePath = NormalizeRemotePath(c.Mirror.RemotePath)
	if c.Mirror.RemotePath == "" {
		c.Mirror.RemotePath = c.Organize.Root
	}
	if strings.TrimSpace(c.Mirror.LocalRoot) == "" {
		c.Mirror.LocalRoot = defaultMirrorRoot
	}
	var err error
	if c.Mirror.LocalRoot, err = expandPath(c.Mirror.LocalRoot); err != nil {
		return fmt.Errorf("mirror.local_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CAMROLL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeRemotePath cleans a Dropbox path so it starts with a slash and has
// no trailing slash. The Dropbox root is returned as an empty string.
func NormalizeRemotePath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "/" {
		return ""
	}
	cleaned := path.Clean("/" + strings.TrimLeft(value, "/"))
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
