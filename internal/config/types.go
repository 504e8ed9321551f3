package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Sun      SunConfig      `json:"sun"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// GroupLog is an optional chat id (as string) that receives log lines
	// at or above logging.telegram.min_level.
	GroupLog string `json:"group_log,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the settings persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./sunrise.db" }
//
// If the section is omitted or driver is ""/"none", the location survives
// only in memory.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SunConfig controls solar time computation and the notification loop.
//
// All durations are Go duration strings (e.g. "30s", "10m").
//
// Defaults (when fields are omitted/zero):
//   - provider: "noaa"
//   - offsets: ["10m"]
//   - tick_interval: "30s"
//   - window: "60s"
//   - purge_at: "00:01"
//   - send_timeout: "5s"
//   - rate_per_sec: 20
type SunConfig struct {
	// Provider selects the solar time implementation:
	// "noaa" (built-in closed form) or "library" (go-sunrise).
	Provider string `json:"provider,omitempty"`

	// Offsets is the ordered list of reminder lead times before each event.
	Offsets []string `json:"offsets,omitempty"`

	TickInterval string `json:"tick_interval,omitempty"`

	// Window is how long past the fire time an event is still deliverable.
	// Must be at least the tick interval or events can slip between ticks.
	Window string `json:"window,omitempty"`

	// PurgeAt is the local wall-clock time ("HH:MM") of the daily ledger purge.
	PurgeAt string `json:"purge_at,omitempty"`

	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`

	// Timezone is the fallback IANA zone for the purge schedule when no
	// location is configured yet.
	Timezone string `json:"timezone,omitempty"`
}
