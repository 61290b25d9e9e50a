package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used for state, logs, and scratch files.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	TempDir  string `toml:"temp_dir"`
}

// Dropbox contains connection settings for the Dropbox v2 API.
type Dropbox struct {
	AccessToken    string `toml:"access_token"`
	APIURL         string `toml:"api_url"`
	ContentURL     string `toml:"content_url"`
	RequestTimeout int    `toml:"request_timeout"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Organize contains settings shared by the date and device organizers.
type Organize struct {
	Root              string `toml:"root"`
	DatePattern       string `toml:"date_pattern"`
	SubmitConcurrency int    `toml:"submit_concurrency"`
	DryRun            bool   `toml:"dry_run"`
}

// Devices contains settings for routing files by capture device.
type Devices struct {
	PhoneModels     []string `toml:"phone_models"`
	OtherFolder     string   `toml:"other_folder"`
	VideoFolder     string   `toml:"video_folder"`
	VideoExtensions []string `toml:"video_extensions"`
	SkipExtensions  []string `toml:"skip_extensions"`
	LatestOnly      bool     `toml:"latest_only"`
}

// Tracker contains polling settings for asynchronous move jobs.
type Tracker struct {
	// PollInterval is the delay between polling rounds, in seconds.
	PollInterval int `toml:"poll_interval"`
	// MaxRounds bounds the number of polling rounds. 0 polls until every job settles.
	MaxRounds int `toml:"max_rounds"`
	// Deadline bounds total polling time in seconds. 0 disables the deadline.
	Deadline int `toml:"deadline"`
	// MaxPollErrors is the number of consecutive status errors tolerated per job.
	// 0 keeps retrying.
	MaxPollErrors   int `toml:"max_poll_errors"`
	PollConcurrency int `toml:"poll_concurrency"`
}

// Ledger contains settings for the already-processed marker store.
type Ledger struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// Mirror contains defaults for the mirror command.
type Mirror struct {
	RemotePath string `toml:"remote_path"`
	LocalRoot  string `toml:"local_root"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunFinished    bool   `toml:"run_finished"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for camroll.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and scratch directories
//   - Dropbox: API credentials and endpoints
//   - Organize: camera uploads root and submission settings
//   - Devices: device routing for the device organizer
//   - Tracker: move job polling interval and liveness bounds
//   - Ledger: already-processed marker storage
//   - Mirror: default remote and local roots for mirroring
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Dropbox       Dropbox       `toml:"dropbox"`
	Organize      Organize      `toml:"organize"`
	Devices       Devices       `toml:"devices"`
	Tracker       Tracker       `toml:"tracker"`
	Ledger        Ledger        `toml:"ledger"`
	Mirror        Mirror        `toml:"mirror"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/camroll/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("camroll.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories camroll writes to.
// The mirror root is created lazily by the mirror command instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.TempDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the tracker polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracker.PollInterval) * time.Second
}

// PollDeadline returns the tracker deadline as a duration (0 when disabled).
func (c *Config) PollDeadline() time.Duration {
	return time.Duration(c.Tracker.Deadline) * time.Second
}

// RequestTimeout returns the Dropbox HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Dropbox.RequestTimeout) * time.Second
}

// RunLockPath returns the lock file guarding concurrent organize runs.
func (c *Config) RunLockPath() string {
	return filepath.Join(c.Paths.StateDir, "camroll.lock")
}

// LogFilePath returns the path of the persistent log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "camroll.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
