package config

const (
	defaultStateDir             = "~/.local/share/camroll"
	defaultLogDir               = "~/.local/share/camroll/logs"
	defaultTempDir              = "~/.cache/camroll/tmp"
	defaultDropboxAPIURL        = "https://api.dropboxapi.com/2"
	defaultDropboxContentURL    = "https://content.dropboxapi.com/2"
	defaultDropboxTimeout       = 60
	defaultDropboxRetryAttempts = 3
	defaultOrganizeRoot         = "/Camera Uploads"
	defaultDatePattern          = `^(\d{4}-\d{2})-\d{2}`
	defaultOtherFolder          = "Other"
	defaultPollInterval         = 5
	defaultMaxPollErrors        = 3
	defaultLedgerBackend        = LedgerBackendFile
	defaultLedgerFile           = "processed"
	defaultMirrorRoot           = "~/Camera Uploads"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Ledger backends.
const (
	LedgerBackendFile   = "file"
	LedgerBackendSQLite = "sqlite"
)

var (
	defaultPhoneModels     = []string{"iPhone 5c"}
	defaultVideoExtensions = []string{".mov", ".mp4", ".m4v"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			TempDir:  defaultTempDir,
		},
		Dropbox: Dropbox{
			APIURL:         defaultDropboxAPIURL,
			ContentURL:     defaultDropboxContentURL,
			RequestTimeout: defaultDropboxTimeout,
			RetryAttempts:  defaultDropboxRetryAttempts,
		},
		Organize: Organize{
			Root:              defaultOrganizeRoot,
			DatePattern:       defaultDatePattern,
			SubmitConcurrency: 1,
		},
		Devices: Devices{
			PhoneModels:     append([]string(nil), defaultPhoneModels...),
			OtherFolder:     defaultOtherFolder,
			VideoExtensions: append([]string(nil), defaultVideoExtensions...),
		},
		Tracker: Tracker{
			PollInterval:    defaultPollInterval,
			MaxPollErrors:   defaultMaxPollErrors,
			PollConcurrency: 1,
		},
		Ledger: Ledger{
			Backend: defaultLedgerBackend,
		},
		Mirror: Mirror{
			RemotePath: defaultOrganizeRoot,
			LocalRoot:  defaultMirrorRoot,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			RunFinished:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
