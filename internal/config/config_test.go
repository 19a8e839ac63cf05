package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/petminion/internal/application"
	"github.com/bnema/petminion/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolateHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	return home
}

func TestLoadCreatesMissingFileWithDefaults(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFileMode), info.Mode().Perm())

	want := Default()
	assert.Equal(t, want.Rule, cfg.Rule)
	assert.Equal(t, want.Intervals, cfg.Intervals)
	assert.Equal(t, want.Schedule, cfg.Schedule)
	assert.Equal(t, want.MQTT, cfg.MQTT)
	assert.Equal(t, filepath.Join(home, ".local", "state", "petminion"), cfg.Paths.State)
	assert.Equal(t, filepath.Join(home, ".local", "share", "petminion"), cfg.Paths.Data)
	assert.Equal(t, filepath.Join(cfg.Paths.Data, "secrets"), cfg.Paths.Secrets)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `feed = ['"]1h0m0s['"]`, string(raw))
	assert.Contains(t, string(raw), "[[schedule]]")
}

func TestLoadReadsFileAndKeepsDefaultsForMissingKeys(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, `
rule = "TokenTrainer"
token = "red ball"

[intervals]
feed = "30m"
token_feed = "0s"

[[schedule]]
at = "16:00"
count = 1

[[schedule]]
at = "08:30"
count = 2

[feeder]
kind = "sim"

[paths]
state = "/var/lib/petminion"
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, application.TokenTrainerName, cfg.Rule)
	assert.Equal(t, "red ball", cfg.Token)
	assert.Equal(t, "cat", cfg.Target)
	assert.Equal(t, 30*time.Minute, cfg.Intervals.Feed)
	assert.Zero(t, cfg.Intervals.TokenFeed)
	assert.Equal(t, 10*time.Minute, cfg.Intervals.FailureCapture)
	assert.Equal(t, FeederSim, cfg.Feeder.Kind)
	assert.Equal(t, CameraSim, cfg.Camera.Kind)
	assert.Equal(t, "/var/lib/petminion", cfg.Paths.State)

	schedule, err := cfg.BuildSchedule()
	require.NoError(t, err)
	entries := schedule.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.NewTimeOfDay(8, 30, 0), entries[0].At)
	assert.Equal(t, 3, schedule.TotalPerDay())
}

func TestLoadWithoutScheduleUsesDefaultSchedule(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, `
rule = "SimpleFeederRule"

[feeder]
kind = "sim"

[paths]
state = "/var/lib/petminion"
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Default().Schedule, cfg.Schedule)

	schedule, err := cfg.BuildSchedule()
	require.NoError(t, err)
	assert.Equal(t, 4, schedule.TotalPerDay())
}

func TestValidateRejectsEmptySchedule(t *testing.T) {
	cfg := Default()
	cfg.Schedule = nil
	require.ErrorContains(t, cfg.Validate(), "schedule has no entries")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("PETMINION_INTERVALS_FEED", "45m")
	t.Setenv("PETMINION_FEEDER_KIND", "sim")
	t.Setenv("PETMINION_SIMULATION_ENABLED", "true")

	cfg, err := Load(viper.New(), writeConfig(t, `rule = "SimpleFeederRule"`))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Intervals.Feed)
	assert.Equal(t, FeederSim, cfg.Feeder.Kind)
	assert.True(t, cfg.Simulation.Enabled)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown rule", body: `rule = "Nope"`, want: `unknown training rule "Nope"`},
		{name: "unknown camera", body: "[camera]\nkind = \"webcam\"", want: `unknown camera "webcam"`},
		{name: "negative interval", body: "[intervals]\nfeed = \"-1m\"", want: "intervals.feed must not be negative"},
		{name: "bad time", body: "[[schedule]]\nat = \"25:00\"\ncount = 1", want: "schedule entry 1"},
		{name: "zero count", body: "[[schedule]]\nat = \"07:00\"\ncount = 0", want: "count must be positive"},
		{name: "dir camera without dir", body: "[camera]\nkind = \"dir\"", want: "camera.dir is required"},
		{name: "http recognizer without url", body: "[recognizer]\nkind = \"http\"", want: "recognizer.url is required"},
		{name: "newer version", body: "version = 9", want: "unsupported config version 9"},
		{name: "broken toml", body: "rule = ", want: "read config file"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUnknownRuleMatchesSentinel(t *testing.T) {
	cfg := Default()
	cfg.Rule = "Nope"
	require.ErrorIs(t, cfg.Validate(), domain.ErrUnknownRule)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestWriteFileRoundTrip(t *testing.T) {
	isolateHome(t)

	cfg := Default()
	cfg.Rule = application.TokenTrainerName
	cfg.Intervals.Feed = 90 * time.Minute
	cfg.Schedule = []ScheduleEntry{{At: "09:15", Count: 3}}
	cfg.Paths = Paths{State: "/s", Data: "/d", LiveFrame: "/tmp/live.jpg", Secrets: "/d/secrets"}

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteFile(path, cfg))

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestRuleAndCaptureConfig(t *testing.T) {
	cfg := Default()
	cfg.Paths.Data = "/data"
	cfg.Simulation.Enabled = true

	rc, err := cfg.RuleConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, rc.FeedInterval)
	assert.Equal(t, 4, rc.Schedule.TotalPerDay())
	assert.Equal(t, "cat", rc.Target)

	cc := cfg.CaptureConfig()
	assert.Equal(t, filepath.Join("/data", "captures"), cc.Dir)
	assert.True(t, cc.Simulated)
	assert.Equal(t, 2*time.Second, cc.FrameInterval)
}
