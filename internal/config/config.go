// Package config loads petminion settings from a TOML file with PETMINION_
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bnema/petminion/internal/application"
	"github.com/bnema/petminion/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configType      = "toml"
	configDir       = "petminion"
	configFileName  = "config.toml"
	envPrefix       = "PETMINION"
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"

	currentVersion = 1
)

const (
	CameraSim = "sim"
	CameraDir = "dir"

	FeederSim    = "sim"
	FeederZigbee = "zigbee"

	SocialNone     = "none"
	SocialPushover = "pushover"

	RecognizerScripted = "scripted"
	RecognizerHTTP     = "http"
)

var (
	CameraKinds     = []string{CameraSim, CameraDir}
	FeederKinds     = []string{FeederSim, FeederZigbee}
	SocialKinds     = []string{SocialNone, SocialPushover}
	RecognizerKinds = []string{RecognizerScripted, RecognizerHTTP}
)

type Config struct {
	Version             int    `mapstructure:"version"`
	Rule                string `mapstructure:"rule"`
	Target              string `mapstructure:"target"`
	Token               string `mapstructure:"token"`
	DisableStateLoading bool   `mapstructure:"disable_state_loading"`

	Intervals  Intervals       `mapstructure:"intervals"`
	Schedule   []ScheduleEntry `mapstructure:"schedule"`
	Camera     Camera          `mapstructure:"camera"`
	Feeder     Feeder          `mapstructure:"feeder"`
	MQTT       MQTT            `mapstructure:"mqtt"`
	Recognizer Recognizer      `mapstructure:"recognizer"`
	Social     Social          `mapstructure:"social"`
	Pushover   Pushover        `mapstructure:"pushover"`
	Paths      Paths           `mapstructure:"paths"`
	Simulation Simulation      `mapstructure:"simulation"`
	Log        Log             `mapstructure:"log"`
	Metrics    Metrics         `mapstructure:"metrics"`
}

type Intervals struct {
	Feed               time.Duration `mapstructure:"feed"`
	TokenFeed          time.Duration `mapstructure:"token_feed"`
	FailureCapture     time.Duration `mapstructure:"failure_capture"`
	LiveFrame          time.Duration `mapstructure:"live_frame"`
	SocialPost         time.Duration `mapstructure:"social_post"`
	FrameSample        time.Duration `mapstructure:"frame_sample"`
	CaptureDuration    time.Duration `mapstructure:"capture_duration"`
	SimCaptureDuration time.Duration `mapstructure:"sim_capture_duration"`
	TickDelay          time.Duration `mapstructure:"tick_delay"`
}

type ScheduleEntry struct {
	At    string `mapstructure:"at"`
	Count int    `mapstructure:"count"`
}

type Camera struct {
	Kind   string `mapstructure:"kind"`
	Dir    string `mapstructure:"dir"`
	Loop   bool   `mapstructure:"loop"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

type Feeder struct {
	Kind string `mapstructure:"kind"`
}

type MQTT struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Topic       string `mapstructure:"topic"`
	Username    string `mapstructure:"username"`
	PasswordKey string `mapstructure:"password_key"`
}

type Recognizer struct {
	Kind           string        `mapstructure:"kind"`
	URL            string        `mapstructure:"url"`
	MinProbability float64       `mapstructure:"min_probability"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type Social struct {
	Kind string `mapstructure:"kind"`
}

// Pushover holds secret store keys, never the credentials themselves.
type Pushover struct {
	BaseURL     string `mapstructure:"base_url"`
	AppTokenKey string `mapstructure:"app_token_key"`
	UserKeyKey  string `mapstructure:"user_key_key"`
}

type Paths struct {
	State     string `mapstructure:"state"`
	Data      string `mapstructure:"data"`
	LiveFrame string `mapstructure:"live_frame"`
	Secrets   string `mapstructure:"secrets"`
}

type Simulation struct {
	Enabled   bool `mapstructure:"enabled"`
	MaxFrames int  `mapstructure:"max_frames"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

func Default() Config {
	return Config{
		Version: currentVersion,
		Rule:    application.SimpleFeederRuleName,
		Target:  "cat",
		Token:   "sports ball",
		Intervals: Intervals{
			Feed:               time.Hour,
			TokenFeed:          5 * time.Minute,
			FailureCapture:     10 * time.Minute,
			LiveFrame:          5 * time.Second,
			SocialPost:         time.Hour,
			FrameSample:        2 * time.Second,
			CaptureDuration:    60 * time.Second,
			SimCaptureDuration: 5 * time.Second,
			TickDelay:          time.Second,
		},
		Schedule: []ScheduleEntry{
			{At: "07:00", Count: 2},
			{At: "14:00", Count: 1},
			{At: "16:00", Count: 1},
		},
		Camera:     Camera{Kind: CameraSim, Width: 640, Height: 480},
		Feeder:     Feeder{Kind: FeederZigbee},
		MQTT:       MQTT{Broker: "tcp://localhost:1883", ClientID: "petminion", Topic: "zigbee2mqtt/feeder"},
		Recognizer: Recognizer{Kind: RecognizerScripted, MinProbability: 0.5, Timeout: 10 * time.Second},
		Social:     Social{Kind: SocialNone},
		Pushover: Pushover{
			BaseURL:     "https://api.pushover.net",
			AppTokenKey: "petminion/pushover/app_token",
			UserKeyKey:  "petminion/pushover/user_key",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// DefaultPath is <user config dir>/petminion/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, configDir, configFileName), nil
}

// Load reads path into a validated Config. A missing file is created with
// the defaults first. An empty path means DefaultPath.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteFile(path, Default()); err != nil {
			return Config{}, err
		}
		slog.Info("created default config", "path", path)
	} else if err != nil {
		return Config{}, fmt.Errorf("stat config file: %w", err)
	}

	setDefaults(v, Default())
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	if len(cfg.Schedule) == 0 {
		slog.Warn("config has no schedule, using the default schedule", "path", path)
		cfg.Schedule = Default().Schedule
	}
	if err := cfg.resolvePaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("version", cfg.Version)
	v.SetDefault("rule", cfg.Rule)
	v.SetDefault("target", cfg.Target)
	v.SetDefault("token", cfg.Token)
	v.SetDefault("disable_state_loading", cfg.DisableStateLoading)

	v.SetDefault("intervals.feed", cfg.Intervals.Feed)
	v.SetDefault("intervals.token_feed", cfg.Intervals.TokenFeed)
	v.SetDefault("intervals.failure_capture", cfg.Intervals.FailureCapture)
	v.SetDefault("intervals.live_frame", cfg.Intervals.LiveFrame)
	v.SetDefault("intervals.social_post", cfg.Intervals.SocialPost)
	v.SetDefault("intervals.frame_sample", cfg.Intervals.FrameSample)
	v.SetDefault("intervals.capture_duration", cfg.Intervals.CaptureDuration)
	v.SetDefault("intervals.sim_capture_duration", cfg.Intervals.SimCaptureDuration)
	v.SetDefault("intervals.tick_delay", cfg.Intervals.TickDelay)

	v.SetDefault("camera.kind", cfg.Camera.Kind)
	v.SetDefault("camera.dir", cfg.Camera.Dir)
	v.SetDefault("camera.loop", cfg.Camera.Loop)
	v.SetDefault("camera.width", cfg.Camera.Width)
	v.SetDefault("camera.height", cfg.Camera.Height)

	v.SetDefault("feeder.kind", cfg.Feeder.Kind)

	v.SetDefault("mqtt.broker", cfg.MQTT.Broker)
	v.SetDefault("mqtt.client_id", cfg.MQTT.ClientID)
	v.SetDefault("mqtt.topic", cfg.MQTT.Topic)
	v.SetDefault("mqtt.username", cfg.MQTT.Username)
	v.SetDefault("mqtt.password_key", cfg.MQTT.PasswordKey)

	v.SetDefault("recognizer.kind", cfg.Recognizer.Kind)
	v.SetDefault("recognizer.url", cfg.Recognizer.URL)
	v.SetDefault("recognizer.min_probability", cfg.Recognizer.MinProbability)
	v.SetDefault("recognizer.timeout", cfg.Recognizer.Timeout)

	v.SetDefault("social.kind", cfg.Social.Kind)

	v.SetDefault("pushover.base_url", cfg.Pushover.BaseURL)
	v.SetDefault("pushover.app_token_key", cfg.Pushover.AppTokenKey)
	v.SetDefault("pushover.user_key_key", cfg.Pushover.UserKeyKey)

	v.SetDefault("paths.state", cfg.Paths.State)
	v.SetDefault("paths.data", cfg.Paths.Data)
	v.SetDefault("paths.live_frame", cfg.Paths.LiveFrame)
	v.SetDefault("paths.secrets", cfg.Paths.Secrets)

	v.SetDefault("simulation.enabled", cfg.Simulation.Enabled)
	v.SetDefault("simulation.max_frames", cfg.Simulation.MaxFrames)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

func (c *Config) resolvePaths() error {
	if c.Paths.State != "" && c.Paths.Data != "" && c.Paths.LiveFrame != "" && c.Paths.Secrets != "" {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	if c.Paths.State == "" {
		c.Paths.State = filepath.Join(xdgDir("XDG_STATE_HOME", home, ".local", "state"), configDir)
	}
	if c.Paths.Data == "" {
		c.Paths.Data = filepath.Join(xdgDir("XDG_DATA_HOME", home, ".local", "share"), configDir)
	}
	if c.Paths.Secrets == "" {
		c.Paths.Secrets = filepath.Join(c.Paths.Data, "secrets")
	}
	if c.Paths.LiveFrame == "" {
		c.Paths.LiveFrame = filepath.Join(os.TempDir(), "petminion-live.jpg")
	}

	return nil
}

func xdgDir(env, home string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func (c Config) Validate() error {
	var errs []error

	if c.Version > currentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version %d (current %d)", c.Version, currentVersion))
	}
	if _, ok := application.Rules[c.Rule]; !ok {
		errs = append(errs, fmt.Errorf("%w %q (known: %v)", domain.ErrUnknownRule, c.Rule, application.RuleNames()))
	}
	if strings.TrimSpace(c.Target) == "" {
		errs = append(errs, errors.New("target is empty"))
	}
	if c.Rule == application.TokenTrainerName && strings.TrimSpace(c.Token) == "" {
		errs = append(errs, errors.New("token is empty"))
	}

	errs = append(errs, checkKind("camera", c.Camera.Kind, CameraKinds))
	errs = append(errs, checkKind("feeder", c.Feeder.Kind, FeederKinds))
	errs = append(errs, checkKind("social", c.Social.Kind, SocialKinds))
	errs = append(errs, checkKind("recognizer", c.Recognizer.Kind, RecognizerKinds))

	if c.Camera.Kind == CameraDir && c.Camera.Dir == "" {
		errs = append(errs, errors.New("camera.dir is required for the dir camera"))
	}
	if c.Recognizer.Kind == RecognizerHTTP && c.Recognizer.URL == "" {
		errs = append(errs, errors.New("recognizer.url is required for the http recognizer"))
	}

	for name, d := range c.Intervals.named() {
		if d < 0 {
			errs = append(errs, fmt.Errorf("intervals.%s must not be negative, got %s", name, d))
		}
	}

	if len(c.Schedule) == 0 {
		errs = append(errs, errors.New("schedule has no entries"))
	} else if _, err := c.BuildSchedule(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func checkKind(section, kind string, known []string) error {
	if slices.Contains(known, kind) {
		return nil
	}
	return fmt.Errorf("unknown %s %q (known: %v)", section, kind, known)
}

func (i Intervals) named() map[string]time.Duration {
	return map[string]time.Duration{
		"feed":                 i.Feed,
		"token_feed":           i.TokenFeed,
		"failure_capture":      i.FailureCapture,
		"live_frame":           i.LiveFrame,
		"social_post":          i.SocialPost,
		"frame_sample":         i.FrameSample,
		"capture_duration":     i.CaptureDuration,
		"sim_capture_duration": i.SimCaptureDuration,
		"tick_delay":           i.TickDelay,
	}
}

// BuildSchedule parses the [[schedule]] entries into a sorted schedule.
func (c Config) BuildSchedule() (domain.Schedule, error) {
	entries := make([]domain.ScheduledFeeding, 0, len(c.Schedule))
	for i, entry := range c.Schedule {
		at, err := domain.ParseTimeOfDay(entry.At)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("schedule entry %d: %w", i+1, err)
		}
		entries = append(entries, domain.ScheduledFeeding{At: at, Count: entry.Count})
	}

	schedule, err := domain.NewSchedule(entries...)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("schedule: %w", err)
	}
	return schedule, nil
}

// RuleConfig is the slice of settings the feeding rules consume.
func (c Config) RuleConfig() (application.RuleConfig, error) {
	schedule, err := c.BuildSchedule()
	if err != nil {
		return application.RuleConfig{}, err
	}

	return application.RuleConfig{
		Schedule:               schedule,
		FeedInterval:           c.Intervals.Feed,
		TokenFeedInterval:      c.Intervals.TokenFeed,
		FailureCaptureInterval: c.Intervals.FailureCapture,
		LiveFrameInterval:      c.Intervals.LiveFrame,
		Target:                 c.Target,
		Token:                  c.Token,
	}, nil
}

func (c Config) CaptureConfig() application.CaptureConfig {
	return application.CaptureConfig{
		Dir:           filepath.Join(c.Paths.Data, "captures"),
		Duration:      c.Intervals.CaptureDuration,
		SimDuration:   c.Intervals.SimCaptureDuration,
		FrameInterval: c.Intervals.FrameSample,
		PostInterval:  c.Intervals.SocialPost,
		Simulated:     c.Simulation.Enabled,
	}
}

// WriteFile stores cfg as TOML, replacing path atomically.
func WriteFile(path string, cfg Config) error {
	data, err := toml.Marshal(toSchema(cfg))
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
