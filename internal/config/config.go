package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the endpoints and runtime knobs of a publishing run.
type Config struct {
	// ReleaseFeedURL is the Atom feed listing UDUNITS-2 releases, newest first.
	ReleaseFeedURL string `yaml:"release_feed_url"`
	// SourceBaseURL is the raw file root of the UDUNITS-2 repository; the
	// version tag is appended to it.
	SourceBaseURL string `yaml:"source_base_url"`
	// DocsBaseURL is where published files are served; used in the copyright comment.
	DocsBaseURL string `yaml:"docs_base_url"`
	// NexusURL is the artifact repository root.
	NexusURL string `yaml:"nexus_url"`
	// Repository is the Nexus raw repository name.
	Repository string `yaml:"repository"`
	// RawDirectory is the directory inside the repository holding version folders.
	RawDirectory string `yaml:"raw_directory"`
	// OutputDir is where the combined document and copyright file are written.
	// Empty means a fresh temporary directory per run.
	OutputDir string `yaml:"output_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// UsernameEnv and PasswordEnv name the credential environment variables.
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
	// Timeout bounds every HTTP request. Zero leaves requests unbounded.
	Timeout time.Duration `yaml:"timeout"`
	// Retries is the number of extra attempts for failed requests.
	Retries int `yaml:"retries"`
}

const (
	// DefaultConfigFilename is the default filename for publisher settings.
	DefaultConfigFilename = "udunits2-publisher.yaml"

	// DefaultReleaseFeedURL is the GitHub release feed of UDUNITS-2.
	DefaultReleaseFeedURL = "https://github.com/Unidata/UDUNITS-2/releases.atom"

	// DefaultSourceBaseURL is the raw content root of the UDUNITS-2 repository.
	DefaultSourceBaseURL = "https://raw.githubusercontent.com/Unidata/UDUNITS-2/"

	// DefaultDocsBaseURL is the public location of published files.
	DefaultDocsBaseURL = "https://docs.unidata.ucar.edu/thredds/udunits2/"

	// DefaultNexusURL is the Unidata artifact server.
	DefaultNexusURL = "https://artifacts.unidata.ucar.edu/"

	// DefaultRepository is the Nexus raw repository for UDUNITS-2 documents.
	DefaultRepository = "udunits-2-docs"

	// DefaultRawDirectory is the repository directory holding version folders.
	DefaultRawDirectory = "/udunits2"

	// DefaultUsernameEnv and DefaultPasswordEnv name the credential variables.
	DefaultUsernameEnv = "NEXUS_USERNAME"
	DefaultPasswordEnv = "NEXUS_PASSWORD"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeRetries is returned for a retry count below zero.
	errNegativeRetries = errors.New("retries must not be negative")
	// errNegativeTimeout is returned for a timeout below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")
	// errInvalidURL is returned when an endpoint is not an absolute http(s) URL.
	errInvalidURL = errors.New("invalid URL")
)

// Default returns a configuration pointing at the public Unidata endpoints.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults on an empty config.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for empty fields and checks the endpoints.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	setDefault(&settings.ReleaseFeedURL, DefaultReleaseFeedURL)
	setDefault(&settings.SourceBaseURL, DefaultSourceBaseURL)
	setDefault(&settings.DocsBaseURL, DefaultDocsBaseURL)
	setDefault(&settings.NexusURL, DefaultNexusURL)
	setDefault(&settings.Repository, DefaultRepository)
	setDefault(&settings.RawDirectory, DefaultRawDirectory)
	setDefault(&settings.UsernameEnv, DefaultUsernameEnv)
	setDefault(&settings.PasswordEnv, DefaultPasswordEnv)
	setDefault(&settings.LogLevel, DefaultLogLevel)

	if settings.Timeout < 0 {
		return errNegativeTimeout
	}

	if settings.Retries < 0 {
		return errNegativeRetries
	}

	// Base URLs are joined with relative paths, so they must end with a slash.
	settings.SourceBaseURL = withTrailingSlash(settings.SourceBaseURL)
	settings.DocsBaseURL = withTrailingSlash(settings.DocsBaseURL)
	settings.NexusURL = withTrailingSlash(settings.NexusURL)
	settings.RawDirectory = "/" + strings.Trim(settings.RawDirectory, "/")

	for name, value := range map[string]string{
		"release feed": settings.ReleaseFeedURL,
		"source base":  settings.SourceBaseURL,
		"docs base":    settings.DocsBaseURL,
		"nexus":        settings.NexusURL,
	} {
		if err := validateURL(value); err != nil {
			return fmt.Errorf("%s URL %q: %w", name, value, err)
		}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalidURL
	}

	return nil
}

func setDefault(field *string, value string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = value
	}
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}

	return s + "/"
}
