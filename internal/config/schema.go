package config

import "time"

// fileSchema is the on-disk layout. Durations are written as Go duration
// strings ("1h0m0s") which viper decodes back into time.Duration.
type fileSchema struct {
	Version             int                   `toml:"version"`
	Rule                string                `toml:"rule"`
	Target              string                `toml:"target"`
	Token               string                `toml:"token"`
	DisableStateLoading bool                  `toml:"disable_state_loading"`
	Intervals           intervalsSchema       `toml:"intervals"`
	Schedule            []scheduleEntrySchema `toml:"schedule"`
	Camera              cameraSchema          `toml:"camera"`
	Feeder              kindSchema            `toml:"feeder"`
	MQTT                mqttSchema            `toml:"mqtt"`
	Recognizer          recognizerSchema      `toml:"recognizer"`
	Social              kindSchema            `toml:"social"`
	Pushover            pushoverSchema        `toml:"pushover"`
	Paths               pathsSchema           `toml:"paths"`
	Simulation          simulationSchema      `toml:"simulation"`
	Log                 logSchema             `toml:"log"`
	Metrics             metricsSchema         `toml:"metrics"`
}

type intervalsSchema struct {
	Feed               string `toml:"feed"`
	TokenFeed          string `toml:"token_feed"`
	FailureCapture     string `toml:"failure_capture"`
	LiveFrame          string `toml:"live_frame"`
	SocialPost         string `toml:"social_post"`
	FrameSample        string `toml:"frame_sample"`
	CaptureDuration    string `toml:"capture_duration"`
	SimCaptureDuration string `toml:"sim_capture_duration"`
	TickDelay          string `toml:"tick_delay"`
}

type scheduleEntrySchema struct {
	At    string `toml:"at"`
	Count int    `toml:"count"`
}

type cameraSchema struct {
	Kind   string `toml:"kind"`
	Dir    string `toml:"dir"`
	Loop   bool   `toml:"loop"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type kindSchema struct {
	Kind string `toml:"kind"`
}

type mqttSchema struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	Topic       string `toml:"topic"`
	Username    string `toml:"username"`
	PasswordKey string `toml:"password_key"`
}

type recognizerSchema struct {
	Kind           string  `toml:"kind"`
	URL            string  `toml:"url"`
	MinProbability float64 `toml:"min_probability"`
	Timeout        string  `toml:"timeout"`
}

type pushoverSchema struct {
	BaseURL     string `toml:"base_url"`
	AppTokenKey string `toml:"app_token_key"`
	UserKeyKey  string `toml:"user_key_key"`
}

type pathsSchema struct {
	State     string `toml:"state"`
	Data      string `toml:"data"`
	LiveFrame string `toml:"live_frame"`
	Secrets   string `toml:"secrets"`
}

type simulationSchema struct {
	Enabled   bool `toml:"enabled"`
	MaxFrames int  `toml:"max_frames"`
}

type logSchema struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type metricsSchema struct {
	Addr string `toml:"addr"`
}

func toSchema(cfg Config) fileSchema {
	schedule := make([]scheduleEntrySchema, 0, len(cfg.Schedule))
	for _, entry := range cfg.Schedule {
		schedule = append(schedule, scheduleEntrySchema(entry))
	}

	return fileSchema{
		Version:             cfg.Version,
		Rule:                cfg.Rule,
		Target:              cfg.Target,
		Token:               cfg.Token,
		DisableStateLoading: cfg.DisableStateLoading,
		Intervals: intervalsSchema{
			Feed:               formatDuration(cfg.Intervals.Feed),
			TokenFeed:          formatDuration(cfg.Intervals.TokenFeed),
			FailureCapture:     formatDuration(cfg.Intervals.FailureCapture),
			LiveFrame:          formatDuration(cfg.Intervals.LiveFrame),
			SocialPost:         formatDuration(cfg.Intervals.SocialPost),
			FrameSample:        formatDuration(cfg.Intervals.FrameSample),
			CaptureDuration:    formatDuration(cfg.Intervals.CaptureDuration),
			SimCaptureDuration: formatDuration(cfg.Intervals.SimCaptureDuration),
			TickDelay:          formatDuration(cfg.Intervals.TickDelay),
		},
		Schedule: schedule,
		Camera:   cameraSchema(cfg.Camera),
		Feeder:   kindSchema(cfg.Feeder),
		MQTT:     mqttSchema(cfg.MQTT),
		Recognizer: recognizerSchema{
			Kind:           cfg.Recognizer.Kind,
			URL:            cfg.Recognizer.URL,
			MinProbability: cfg.Recognizer.MinProbability,
			Timeout:        formatDuration(cfg.Recognizer.Timeout),
		},
		Social:     kindSchema(cfg.Social),
		Pushover:   pushoverSchema(cfg.Pushover),
		Paths:      pathsSchema(cfg.Paths),
		Simulation: simulationSchema(cfg.Simulation),
		Log:        logSchema(cfg.Log),
		Metrics:    metricsSchema(cfg.Metrics),
	}
}

func formatDuration(d time.Duration) string {
	return d.String()
}
