package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".linkcheck"

// XDGConfigFile is the configuration file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Settings are run options that may be set in the configuration file.
// Nil fields leave the current value untouched.
type Settings struct {
	Threads         *int           `yaml:"threads,omitempty"`
	HostConnections *int           `yaml:"hostConnections,omitempty"`
	NoWait          *bool          `yaml:"noWait,omitempty"`
	WaitTimeout     *time.Duration `yaml:"waitTimeout,omitempty"`
	Timeout         *time.Duration `yaml:"timeout,omitempty"`
	RecursionLevel  *int           `yaml:"recursionLevel,omitempty"`
	UserAgent       *string        `yaml:"userAgent,omitempty"`
	IgnoreRobots    *bool          `yaml:"ignoreRobots,omitempty"`
	Proxy           *string        `yaml:"proxy,omitempty"`
	Rate            *float64       `yaml:"rate,omitempty"`
	MaxBodySize     *int64         `yaml:"maxBodySize,omitempty"`
	Output          *string        `yaml:"output,omitempty"`
	Language        *string        `yaml:"language,omitempty"`
	Save            *bool          `yaml:"save,omitempty"`
	DBDir           *string        `yaml:"dbDir,omitempty"`

	// Intern, Extern and ExternStrict are link patterns. A leading "!"
	// negates a pattern.
	Intern       []string `yaml:"intern,omitempty"`
	Extern       []string `yaml:"extern,omitempty"`
	ExternStrict []string `yaml:"externStrict,omitempty"`

	// Files are "FORMAT[/PATH]" outputs, as with the --file flag.
	Files []string `yaml:"files,omitempty"`
}

// File represents the structure of the .linkcheck configuration file.
type File struct {
	// Settings are inlined at the top level of the file.
	Settings `yaml:",inline"`

	// Sites maps host names to their site specific configurations.
	// Keys are host names without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all hosts
	// unless overridden in the host specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers decide whether that is an error based on whether the path
// was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	// Host lookups are case-insensitive.
	for host, site := range cf.Sites {
		lower := strings.ToLower(host)
		if lower != host {
			delete(cf.Sites, host)
			cf.Sites[lower] = site
		}
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .linkcheck in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .linkcheck in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ApplyFile copies the settings and site configurations of cf into c.
// Link patterns from the file are appended to those already present.
func (c *Config) ApplyFile(cf *File) error {
	if cf == nil {
		return nil
	}
	s := cf.Settings

	setIfPresent(&c.Threads, s.Threads)
	setIfPresent(&c.HostConnections, s.HostConnections)
	setIfPresent(&c.NoWait, s.NoWait)
	setIfPresent(&c.WaitTimeout, s.WaitTimeout)
	setIfPresent(&c.Timeout, s.Timeout)
	setIfPresent(&c.RecursionLevel, s.RecursionLevel)
	setIfPresent(&c.UserAgent, s.UserAgent)
	setIfPresent(&c.IgnoreRobots, s.IgnoreRobots)
	setIfPresent(&c.Proxy, s.Proxy)
	setIfPresent(&c.RequestsPerSecond, s.Rate)
	setIfPresent(&c.MaxBodySize, s.MaxBodySize)
	setIfPresent(&c.OutputFormat, s.Output)
	setIfPresent(&c.Language, s.Language)
	setIfPresent(&c.SaveToDB, s.Save)
	setIfPresent(&c.DBDir, s.DBDir)

	files, err := ParseFileOutputs(s.Files)
	if err != nil {
		return err
	}
	c.Files = append(c.Files, files...)

	intern, err := ParsePatterns(s.Intern, false)
	if err != nil {
		return fmt.Errorf("intern: %w", err)
	}
	extern, err := ParsePatterns(s.Extern, false)
	if err != nil {
		return fmt.Errorf("extern: %w", err)
	}
	strict, err := ParsePatterns(s.ExternStrict, true)
	if err != nil {
		return fmt.Errorf("externStrict: %w", err)
	}
	c.Intern = append(c.Intern, intern...)
	c.Extern = append(c.Extern, extern...)
	c.Extern = append(c.Extern, strict...)

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	c.SiteConfigs = cf
	return nil
}

// ParsePatterns compiles each argument into a link pattern.
func ParsePatterns(args []string, strict bool) ([]model.LinkPattern, error) {
	patterns := make([]model.LinkPattern, 0, len(args))
	for _, arg := range args {
		p, err := model.NewLinkPattern(arg, strict)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
