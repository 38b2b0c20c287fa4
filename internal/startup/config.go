package startup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"recview/internal/auth"
	"recview/internal/logging"
	"recview/internal/transcoder"
)

// CacheDirName is the reserved directory under MEDIA_DIR that holds transcodes.
const CacheDirName = ".cache"

// Config holds all application configuration. It is built once at startup
// and never modified afterwards.
type Config struct {
	MediaDir         string
	CacheDir         string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	AuthUsername     string
	AuthPasswordHash string
	AuthRealm        string
	TemplatePath     string
	FFmpegBinary     string
	FFprobeBinary    string
	ProbeTimeout     time.Duration
	TranscodeWorkers int
	LogLevel         string
	LogFile          string
	LogStaticFiles   bool
	LogHealthChecks  bool

	// Feature flags based on directory availability
	TranscodingEnabled bool
}

// AuthEnabled reports whether a credential is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthUsername != "" && c.AuthPasswordHash != ""
}

// setting ties a viper key to its environment variable, flag and default.
// Keys are the environment variable names, so a config file uses the same
// spelling in lowercase.
type setting struct {
	env   string
	flag  string
	def   any
	usage string
}

var settings = []setting{
	{"MEDIA_DIR", "media-dir", "./recordings", "root directory of the recordings"},
	{"PORT", "port", "9596", "HTTP port"},
	{"METRICS_PORT", "metrics-port", "9090", "Prometheus metrics port"},
	{"METRICS_ENABLED", "metrics", true, "serve /metrics and /healthz on the metrics port"},
	{"AUTH_USERNAME", "auth-username", "", "Basic auth username (empty disables auth)"},
	{"AUTH_PASSWORD_HASH", "auth-password-hash", "", "bcrypt hash of the Basic auth password"},
	{"AUTH_REALM", "auth-realm", auth.DefaultRealm, "Basic auth realm"},
	{"TEMPLATE_PATH", "template", "", "HTML shell with {{BREADCRUMBS}} and {{VIDEO_TABLE_ROWS}}"},
	{"FFMPEG_BINARY", "ffmpeg", "ffmpeg", "ffmpeg executable"},
	{"FFPROBE_BINARY", "ffprobe", "ffprobe", "ffprobe executable"},
	{"PROBE_TIMEOUT", "probe-timeout", transcoder.DefaultProbeTimeout, "upper bound for one ffprobe run"},
	{"TRANSCODE_WORKERS", "transcode-workers", 0, "concurrent transcodes (0 derives from CPU count)"},
	{"LOG_LEVEL", "log-level", "", "debug, info, warn or error"},
	{"LOG_FILE", "log-file", "", "also write logs to this rotating file"},
	{"LOG_STATIC_FILES", "log-static-files", false, "log requests for static assets"},
	{"LOG_HEALTH_CHECKS", "log-health-checks", true, "log health check requests"},
}

// NewViper returns a viper instance with defaults and environment bindings
// for every setting.
func NewViper() *viper.Viper {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.env, s.def)
		_ = v.BindEnv(s.env, s.env)
	}
	return v
}

// Init registers a flag for every setting on cmd and binds it to v. A flag
// given on the command line wins over the environment and the config file.
func Init(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	for _, s := range settings {
		switch def := s.def.(type) {
		case string:
			flags.String(s.flag, def, s.usage)
		case bool:
			flags.Bool(s.flag, def, s.usage)
		case int:
			flags.Int(s.flag, def, s.usage)
		case time.Duration:
			flags.Duration(s.flag, def, s.usage)
		default:
			return fmt.Errorf("setting %s has unsupported type %T", s.env, s.def)
		}
		if err := v.BindPFlag(s.env, flags.Lookup(s.flag)); err != nil {
			return err
		}
	}
	return nil
}

// ReadConfigFile merges a YAML, TOML or JSON file into v. An empty path is a no-op.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// LoadConfig resolves and validates the configuration held by v, prepares the
// cache directory and logs the result.
func LoadConfig(v *viper.Viper) (*Config, error) {
	printBanner()
	logSystemInfo()

	config := &Config{
		MediaDir:         v.GetString("MEDIA_DIR"),
		Port:             v.GetString("PORT"),
		MetricsPort:      v.GetString("METRICS_PORT"),
		MetricsEnabled:   v.GetBool("METRICS_ENABLED"),
		AuthUsername:     v.GetString("AUTH_USERNAME"),
		AuthPasswordHash: v.GetString("AUTH_PASSWORD_HASH"),
		AuthRealm:        v.GetString("AUTH_REALM"),
		TemplatePath:     v.GetString("TEMPLATE_PATH"),
		FFmpegBinary:     v.GetString("FFMPEG_BINARY"),
		FFprobeBinary:    v.GetString("FFPROBE_BINARY"),
		ProbeTimeout:     v.GetDuration("PROBE_TIMEOUT"),
		TranscodeWorkers: v.GetInt("TRANSCODE_WORKERS"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFile:          v.GetString("LOG_FILE"),
		LogStaticFiles:   v.GetBool("LOG_STATIC_FILES"),
		LogHealthChecks:  v.GetBool("LOG_HEALTH_CHECKS"),
	}

	logSection("CONFIGURATION")
	if file := v.ConfigFileUsed(); file != "" {
		logging.Info("  Config file:         %s", file)
	}
	logging.Info("  MEDIA_DIR:           %s", config.MediaDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  AUTH_USERNAME:       %s", orNone(config.AuthUsername))
	logging.Info("  AUTH_PASSWORD_HASH:  %s", redact(config.AuthPasswordHash))
	logging.Info("  TEMPLATE_PATH:       %s", orNone(config.TemplatePath))
	logging.Info("  FFMPEG_BINARY:       %s", config.FFmpegBinary)
	logging.Info("  FFPROBE_BINARY:      %s", config.FFprobeBinary)
	logging.Info("  PROBE_TIMEOUT:       %v", config.ProbeTimeout)
	logging.Info("  TRANSCODE_WORKERS:   %d", config.TranscodeWorkers)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  LOG_FILE:            %s", orNone(config.LogFile))
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)

	if err := config.validate(); err != nil {
		return nil, err
	}

	logSection("DIRECTORY SETUP")

	mediaDir, err := filepath.Abs(config.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	config.MediaDir = mediaDir
	config.CacheDir = filepath.Join(mediaDir, CacheDirName)
	logging.Info("  Media directory (absolute): %s", config.MediaDir)
	logging.Info("  Cache directory (absolute): %s", config.CacheDir)

	if err := ensureDirectory(config.MediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	config.TranscodingEnabled = transcoder.EnsureCacheDir(config.CacheDir)
	if !config.TranscodingEnabled {
		logging.Warn("    transcoding will be disabled")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Transcoding: %s", enabledString(config.TranscodingEnabled))
	logging.Info("    Auth:        %s", enabledString(config.AuthEnabled()))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MediaDir == "" {
		errs = append(errs, errors.New("MEDIA_DIR must not be empty"))
	}
	if err := validatePort("PORT", c.Port); err != nil {
		errs = append(errs, err)
	}
	if c.MetricsEnabled {
		if err := validatePort("METRICS_PORT", c.MetricsPort); err != nil {
			errs = append(errs, err)
		}
		if c.MetricsPort == c.Port {
			errs = append(errs, errors.New("METRICS_PORT must differ from PORT"))
		}
	}
	if (c.AuthUsername == "") != (c.AuthPasswordHash == "") {
		errs = append(errs, errors.New("AUTH_USERNAME and AUTH_PASSWORD_HASH must be set together"))
	}
	if c.AuthPasswordHash != "" {
		if err := auth.ValidateHash(c.AuthPasswordHash); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROBE_TIMEOUT must be positive, got %v", c.ProbeTimeout))
	}
	if c.TranscodeWorkers < 0 {
		errs = append(errs, fmt.Errorf("TRANSCODE_WORKERS must not be negative, got %d", c.TranscodeWorkers))
	}
	return errors.Join(errs...)
}

func validatePort(name, value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%s must be a port number, got %q", name, value)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func redact(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}
