package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	dircamera "github.com/bnema/petminion/internal/adapters/camera/dir"
	simcamera "github.com/bnema/petminion/internal/adapters/camera/sim"
	chainstore "github.com/bnema/petminion/internal/adapters/credentials/chain"
	simfeeder "github.com/bnema/petminion/internal/adapters/feeder/sim"
	"github.com/bnema/petminion/internal/adapters/feeder/zigbee"
	sqlitejournal "github.com/bnema/petminion/internal/adapters/journal/sqlite"
	"github.com/bnema/petminion/internal/adapters/recognizer/httpdetect"
	"github.com/bnema/petminion/internal/adapters/recognizer/scripted"
	statusadapter "github.com/bnema/petminion/internal/adapters/render/status"
	"github.com/bnema/petminion/internal/adapters/snapshots"
	"github.com/bnema/petminion/internal/adapters/social/logonly"
	"github.com/bnema/petminion/internal/adapters/social/pushover"
	"github.com/bnema/petminion/internal/adapters/state/jsonfile"
	"github.com/bnema/petminion/internal/application"
	"github.com/bnema/petminion/internal/config"
	"github.com/bnema/petminion/internal/logging"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	clock          clockwork.Clock
	store          *jsonfile.Store
	secretStore    ports.SecretStore
	statusRenderer func(application.FeederStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func (a *app) wire(flags *rootFlags, logOutput io.Writer) error {
	// Config loading logs too; honour the flags until the file is read.
	logging.InitWriter(logOutput, flags.logLevel(""), flags.logFormatOr(""))

	cfg, err := config.Load(viper.New(), flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.simulate {
		cfg.Simulation.Enabled = true
	}

	level := flags.logLevel(cfg.Log.Level)
	format := flags.logFormatOr(cfg.Log.Format)

	var opts []jsonfile.Option
	if cfg.DisableStateLoading {
		opts = append(opts, jsonfile.WithLoadingDisabled())
	}
	store, err := jsonfile.NewStore(cfg.Paths.State, opts...)
	if err != nil {
		return fmt.Errorf("wire state store: %w", err)
	}

	secretStore, err := chainstore.NewDefault(cfg.Paths.Secrets)
	if err != nil {
		return fmt.Errorf("wire secret store chain: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.InitWriter(logOutput, level, format)
	a.clock = clockwork.NewRealClock()
	a.store = store
	a.secretStore = secretStore
	a.statusRenderer = statusadapter.Render
	a.now = time.Now

	return nil
}

func (f *rootFlags) logLevel(configured string) string {
	if f.debug {
		return "debug"
	}
	return configured
}

func (f *rootFlags) logFormatOr(configured string) string {
	if f.logFormat != "" {
		return f.logFormat
	}
	return configured
}

func (a *app) ruleConfig() (application.RuleConfig, error) {
	return a.cfg.RuleConfig()
}

func (a *app) openJournal() (*sqlitejournal.Journal, error) {
	journal, err := sqlitejournal.Open(filepath.Join(a.cfg.Paths.Data, sqlitejournal.DefaultFileName))
	if err != nil {
		return nil, fmt.Errorf("wire feeding journal: %w", err)
	}
	return journal, nil
}

func (a *app) statusService(journal ports.FeedingJournal) (*application.StatusService, error) {
	ruleCfg, err := a.ruleConfig()
	if err != nil {
		return nil, err
	}
	return application.NewStatusService(a.cfg.Rule, ruleCfg, a.store, journal, a.clock, a.logger), nil
}

// feedCooldown opens the persisted feed cooldown with the configured rule's
// interval.
func (a *app) feedCooldown(ctx context.Context) (*application.RateLimiter, time.Duration, error) {
	ruleCfg, err := a.ruleConfig()
	if err != nil {
		return nil, 0, err
	}
	configured := ruleCfg.CooldownFor(a.cfg.Rule)
	return application.FeedCooldown(ctx, a.clock, configured, a.store, a.logger), configured, nil
}

// components are the collaborators of a running trainer.
type components struct {
	camera     ports.Camera
	recognizer ports.Recognizer
	feeder     ports.Feeder
	poster     ports.SocialPoster
	journal    *sqlitejournal.Journal
	snapshots  *snapshots.Store
	liveFrames *snapshots.LiveWriter
	closers    []func() error
}

func (c *components) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// kinds resolves the registry keys, forcing the simulated collaborators
// in simulation mode.
func (a *app) kinds() (camera, recognizer, feeder, social string) {
	if a.cfg.Simulation.Enabled {
		return config.CameraSim, config.RecognizerScripted, config.FeederSim, config.SocialNone
	}
	return a.cfg.Camera.Kind, a.cfg.Recognizer.Kind, a.cfg.Feeder.Kind, a.cfg.Social.Kind
}

func (a *app) components(ctx context.Context) (*components, error) {
	cameraKind, recognizerKind, feederKind, socialKind := a.kinds()
	parts := &components{}

	fail := func(err error) (*components, error) {
		return nil, errors.Join(err, parts.close())
	}

	newCamera, err := lookup("camera", cameraKind, cameras)
	if err != nil {
		return fail(err)
	}
	if parts.camera, err = newCamera(a); err != nil {
		return fail(fmt.Errorf("wire %s camera: %w", cameraKind, err))
	}

	newRecognizer, err := lookup("recognizer", recognizerKind, recognizers)
	if err != nil {
		return fail(err)
	}
	if parts.recognizer, err = newRecognizer(a); err != nil {
		return fail(fmt.Errorf("wire %s recognizer: %w", recognizerKind, err))
	}

	feeder, closeFeeder, err := a.feeder(ctx, feederKind)
	if err != nil {
		return fail(err)
	}
	parts.feeder = feeder
	parts.closers = append(parts.closers, closeFeeder)

	newPoster, err := lookup("social", socialKind, posters)
	if err != nil {
		return fail(err)
	}
	parts.poster = newPoster(a)

	if parts.journal, err = a.openJournal(); err != nil {
		return fail(err)
	}
	parts.closers = append(parts.closers, parts.journal.Close)

	if parts.snapshots, err = snapshots.NewStore(a.cfg.Paths.Data); err != nil {
		return fail(fmt.Errorf("wire snapshot store: %w", err))
	}
	parts.liveFrames = snapshots.NewLiveWriter(a.cfg.Paths.LiveFrame)

	return parts, nil
}

func (a *app) feeder(ctx context.Context, kind string) (ports.Feeder, func() error, error) {
	if a.cfg.Simulation.Enabled {
		kind = config.FeederSim
	}
	newFeeder, err := lookup("feeder", kind, feeders)
	if err != nil {
		return nil, nil, err
	}
	feeder, closeFeeder, err := newFeeder(ctx, a)
	if err != nil {
		return nil, nil, fmt.Errorf("wire %s feeder: %w", kind, err)
	}
	return feeder, closeFeeder, nil
}

type (
	cameraFactory     func(a *app) (ports.Camera, error)
	recognizerFactory func(a *app) (ports.Recognizer, error)
	feederFactory     func(ctx context.Context, a *app) (ports.Feeder, func() error, error)
	posterFactory     func(a *app) ports.SocialPoster
)

var cameras = map[string]cameraFactory{
	config.CameraSim: func(a *app) (ports.Camera, error) {
		return simcamera.New(simcamera.Config{
			Width:     a.cfg.Camera.Width,
			Height:    a.cfg.Camera.Height,
			MaxFrames: a.cfg.Simulation.MaxFrames,
		}, a.clock), nil
	},
	config.CameraDir: func(a *app) (ports.Camera, error) {
		return dircamera.New(a.cfg.Camera.Dir, a.cfg.Camera.Loop, a.clock)
	},
}

var recognizers = map[string]recognizerFactory{
	config.RecognizerScripted: func(a *app) (ports.Recognizer, error) {
		return scripted.Simulation(a.cfg.Target, a.cfg.Token), nil
	},
	config.RecognizerHTTP: func(a *app) (ports.Recognizer, error) {
		return httpdetect.New(httpdetect.Config{
			URL:            a.cfg.Recognizer.URL,
			MinProbability: a.cfg.Recognizer.MinProbability,
			Timeout:        a.cfg.Recognizer.Timeout,
		}, nil, a.logger)
	},
}

var feeders = map[string]feederFactory{
	config.FeederSim: func(_ context.Context, a *app) (ports.Feeder, func() error, error) {
		return simfeeder.New(a.logger), func() error { return nil }, nil
	},
	config.FeederZigbee: func(ctx context.Context, a *app) (ports.Feeder, func() error, error) {
		var password string
		if key := a.cfg.MQTT.PasswordKey; key != "" {
			var err error
			if password, err = a.secretStore.Get(ctx, key); err != nil {
				return nil, nil, fmt.Errorf("resolve mqtt password: %w", err)
			}
		}

		feeder := zigbee.New(zigbee.Config{
			Broker:   a.cfg.MQTT.Broker,
			ClientID: a.cfg.MQTT.ClientID,
			Topic:    a.cfg.MQTT.Topic,
			Username: a.cfg.MQTT.Username,
			Password: password,
		}, a.logger)
		if err := feeder.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return feeder, func() error { feeder.Close(); return nil }, nil
	},
}

var posters = map[string]posterFactory{
	config.SocialNone: func(a *app) ports.SocialPoster {
		return logonly.New(a.logger)
	},
	config.SocialPushover: func(a *app) ports.SocialPoster {
		return pushover.New(pushover.Config{
			BaseURL:     a.cfg.Pushover.BaseURL,
			AppTokenKey: a.cfg.Pushover.AppTokenKey,
			UserKeyKey:  a.cfg.Pushover.UserKeyKey,
		}, a.secretStore, nil, a.logger)
	},
}

func lookup[F any](kind, name string, registry map[string]F) (F, error) {
	factory, ok := registry[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("unknown %s %q (known: %v)", kind, name, registryKeys(registry))
	}
	return factory, nil
}

func registryKeys[F any](registry map[string]F) []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
