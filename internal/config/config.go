package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/linkcheck/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkcheck"

	// DefaultThreads is the number of check workers.
	DefaultThreads = 10

	// DefaultHostConnections limits open connections per scheme://host:port.
	// Two keeps a link check polite towards a single server.
	DefaultHostConnections = 2

	// DefaultWaitTimeout bounds how long a worker waits for a free
	// connection to a busy host.
	DefaultWaitTimeout = 30 * time.Second

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRecursionLevel is unlimited recursion.
	DefaultRecursionLevel = -1

	// DefaultPollInterval is how often the engine checks for interrupts
	// and dead workers while waiting for the queue to drain.
	DefaultPollInterval = time.Second

	// DefaultAbortTimeout is how long an aborting run waits for in-flight
	// checks before their requests are cancelled.
	DefaultAbortTimeout = 10 * time.Second

	// DefaultOutputFormat is the result logger used on stdout.
	DefaultOutputFormat = "text"

	// DefaultLanguage is the language of the text output.
	DefaultLanguage = "en"

	// DefaultUserAgent identifies linkcheck in HTTP requests.
	DefaultUserAgent = "linkcheck/1.0 (+https://github.com/nao1215/linkcheck)"

	// DefaultMaxBodySize limits how much of a page is parsed for links.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all options of a check run. It is built from defaults, the
// configuration file and CLI flags, in that order of precedence.
type Config struct {
	// Seeds are the URLs the run starts from.
	Seeds []string

	// Threads is the number of check workers.
	Threads int

	// HostConnections is the connection limit per host.
	HostConnections int

	// NoWait makes a check fail immediately when its host has no free
	// connection instead of waiting for one.
	NoWait bool

	// WaitTimeout bounds the wait for a free connection. Zero waits until
	// the run is cancelled.
	WaitTimeout time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RecursionLevel is the maximum depth of followed links. -1 is
	// unlimited, 0 checks only the seeds.
	RecursionLevel int

	// PollInterval is the engine's interrupt polling interval.
	PollInterval time.Duration

	// AbortTimeout bounds waiting for in-flight checks after an interrupt.
	AbortTimeout time.Duration

	// UserAgent is sent with every HTTP request and used for robots.txt.
	UserAgent string

	// IgnoreRobots disables robots.txt checks.
	IgnoreRobots bool

	// Proxy is a SOCKS5 proxy in "host:port" format. Empty connects directly.
	Proxy string

	// RequestsPerSecond limits requests per host. Zero is unlimited.
	RequestsPerSecond float64

	// MaxBodySize is the maximum number of bytes parsed per page.
	MaxBodySize int64

	// Intern are the patterns of internal URLs. When empty, URLs on the
	// seed hosts are internal.
	Intern []model.LinkPattern

	// Extern are the patterns of URLs that are checked but not followed,
	// or, when strict, not checked at all.
	Extern []model.LinkPattern

	// OutputFormat is the result logger name.
	OutputFormat string

	// Files are additional outputs written next to stdout.
	Files []FileOutput

	// Language selects number formatting of the text output (BCP 47).
	Language string

	// SaveToDB additionally stores the run in the result database.
	SaveToDB bool

	// DBDir is the directory of the result database.
	DBDir string

	// Verbose logs all results and enables debug logging.
	Verbose bool

	// ConfigFilePath is the path of the configuration file. If empty,
	// FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds per-site cookies and headers from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threads:         DefaultThreads,
		HostConnections: DefaultHostConnections,
		WaitTimeout:     DefaultWaitTimeout,
		Timeout:         DefaultTimeout,
		RecursionLevel:  DefaultRecursionLevel,
		PollInterval:    DefaultPollInterval,
		AbortTimeout:    DefaultAbortTimeout,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		OutputFormat:    DefaultOutputFormat,
		Language:        DefaultLanguage,
		DBDir:           XDGDataDir(),
		SiteConfigs:     &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for linkcheck.
// On Linux: ~/.local/share/linkcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcheck.
// On Linux: ~/.config/linkcheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}
	if c.HostConnections <= 0 {
		return ErrInvalidHostConnections
	}
	if c.WaitTimeout < 0 {
		return ErrInvalidWaitTimeout
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RecursionLevel < -1 {
		return ErrInvalidRecursionLevel
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.AbortTimeout < 0 {
		return ErrInvalidAbortTimeout
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.OutputFormat == "" {
		return ErrNoOutputFormat
	}
	if c.Language == "" {
		return ErrNoLanguage
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}
	return nil
}
