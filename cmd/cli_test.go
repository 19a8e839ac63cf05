package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlitejournal "github.com/bnema/petminion/internal/adapters/journal/sqlite"
	"github.com/bnema/petminion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	root       string
	configPath string
	stateDir   string
	dataDir    string
	livePath   string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()

	root := t.TempDir()
	env := cliEnv{
		root:       root,
		configPath: filepath.Join(root, "config.toml"),
		stateDir:   filepath.Join(root, "state"),
		dataDir:    filepath.Join(root, "data"),
		livePath:   filepath.Join(root, "live.jpg"),
	}

	body := fmt.Sprintf(`rule = "SimpleFeederRule"

[feeder]
kind = "sim"

[camera]
kind = "sim"
width = 32
height = 24

[intervals]
tick_delay = "0s"

[simulation]
max_frames = 60

[paths]
state = %q
data = %q
live_frame = %q
secrets = %q
`, env.stateDir, env.dataDir, env.livePath, filepath.Join(root, "secrets"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(body), 0o600))

	return env
}

func executeCLI(t *testing.T, env cliEnv, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", env.root)
	// keep the secret chain away from a real password store
	t.Setenv("PATH", t.TempDir())

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", env.configPath}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionSkipsConfig(t *testing.T) {
	env := newCLIEnv(t)
	env.configPath = filepath.Join(env.root, "missing", "config.toml")

	stdout, _, err := executeCLI(t, env, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)

	_, err = os.Stat(env.configPath)
	assert.True(t, os.IsNotExist(err))
}

func TestScheduleListsCumulativeTotals(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "schedule")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CUMULATIVE")
	assert.Contains(t, stdout, "07:00")
	assert.Contains(t, stdout, "16:00")
	assert.Contains(t, stdout, "rule: SimpleFeederRule, 4 portions per day")
}

func TestConfigWarningsUseRequestedLogFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := executeCLI(t, env, "--log-format", "json", "schedule")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"level":"WARN"`)
	assert.Contains(t, stderr, `"msg":"config has no schedule, using the default schedule"`)
}

func TestStatusJSONOnFreshState(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "status", "--json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, "SimpleFeederRule", decoded["Rule"])
	assert.Equal(t, float64(0), decoded["FedToday"])
	assert.Equal(t, float64(4), decoded["TotalPerDay"])
}

func TestStatusRendersView(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Petminion")
	assert.Contains(t, stdout, "SimpleFeederRule")
	assert.Contains(t, stdout, "No feedings recorded.")
}

func TestRunSimulatedSessionPersistsState(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := executeCLI(t, env, "run", "--simulate")
	require.NoError(t, err, "stderr: %s", stderr)

	_, err = os.Stat(filepath.Join(env.stateDir, "SimpleFeederRule.json"))
	require.NoError(t, err)
	_, err = os.Stat(env.livePath)
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, env, "history")
	require.NoError(t, err)
	assert.NotEmpty(t, stdout)
}

func TestRunRejectsUnknownRule(t *testing.T) {
	env := newCLIEnv(t)
	body, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.configPath, bytes.Replace(body, []byte(`"SimpleFeederRule"`), []byte(`"MysteryRule"`), 1), 0o600))

	_, _, err = executeCLI(t, env, "run", "--simulate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown training rule "MysteryRule"`)
}

func TestHistoryEmpty(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "history")
	require.NoError(t, err)
	assert.Equal(t, "No feedings recorded.\n", stdout)

	stdout, _, err = executeCLI(t, env, "history", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(stdout))
}

func TestHistoryListsJournalAndLastDayTotal(t *testing.T) {
	env := newCLIEnv(t)

	journal, err := sqlitejournal.Open(filepath.Join(env.dataDir, sqlitejournal.DefaultFileName))
	require.NoError(t, err)
	now := time.Now()
	for _, event := range []domain.FeedingEvent{
		{Rule: "SimpleFeederRule", Path: domain.FeedingPathScheduled, Portions: 1, FedToday: 1, FedAt: now.Add(-30 * time.Hour)},
		{Rule: "SimpleFeederRule", Path: domain.FeedingPathScheduled, Portions: 2, FedToday: 2, FedAt: now.Add(-time.Hour)},
	} {
		_, err := journal.Record(context.Background(), event)
		require.NoError(t, err)
	}
	require.NoError(t, journal.Close())

	stdout, _, err := executeCLI(t, env, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 hour ago")
	assert.Contains(t, stdout, "2 portions in the last 24 hours")
}

func TestFeedSimulated(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "feed", "--simulate", "-q", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "dispensed 2 portions\n", stdout)

	_, _, err = executeCLI(t, env, "feed", "--simulate", "-n", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portions must be positive")
}

func TestCooldownPinSurvivesAndUnpins(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env, "cooldown")
	require.NoError(t, err)
	assert.Equal(t, "feed cooldown: 1h0m0s (configured), ready\n", stdout)

	stdout, _, err = executeCLI(t, env, "cooldown", "pin", "45m")
	require.NoError(t, err)
	assert.Equal(t, "feed cooldown pinned to 45m0s\n", stdout)

	stdout, _, err = executeCLI(t, env, "cooldown")
	require.NoError(t, err)
	assert.Equal(t, "feed cooldown: 45m0s (pinned, configured 1h0m0s), ready\n", stdout)

	stdout, _, err = executeCLI(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "every 45m0s")

	stdout, _, err = executeCLI(t, env, "cooldown", "unpin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1h0m0s applies from the next start")

	stdout, _, err = executeCLI(t, env, "cooldown")
	require.NoError(t, err)
	assert.Equal(t, "feed cooldown: 1h0m0s (configured), ready\n", stdout)

	_, _, err = executeCLI(t, env, "cooldown", "pin", "--", "-5m")
	require.ErrorContains(t, err, "must not be negative")
}

func TestSecretSetKeysRemove(t *testing.T) {
	env := newCLIEnv(t)
	key := "petminion/pushover/app_token"

	stdout, _, err := executeCLI(t, env, "secret", "keys")
	require.NoError(t, err)
	assert.Contains(t, stdout, key+"\tmissing")

	stdout, _, err = executeCLI(t, env, "secret", "set", key, "--value", "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "stored "+key+"\n", stdout)

	stdout, _, err = executeCLI(t, env, "secret", "keys")
	require.NoError(t, err)
	assert.Contains(t, stdout, key+"\tset")

	_, _, err = executeCLI(t, env, "secret", "remove", key)
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, env, "secret", "keys")
	require.NoError(t, err)
	assert.Contains(t, stdout, key+"\tmissing")
}

func TestSecretSetRequiresValue(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := executeCLI(t, env, "secret", "set", "petminion/pushover/user_key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret value is empty")
}

func TestUnknownCommand(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := executeCLI(t, env, "limit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"limit\"")
}
