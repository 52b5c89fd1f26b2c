package database

// Config holds SQLite connection settings for the conversation store file.
type Config struct {
	// Path is the store file; the backup service snapshots this exact file.
	Path          string `yaml:"path" envconfig:"DB_PATH"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" envconfig:"DB_BUSY_TIMEOUT_MS"`
	// MaxConnections caps the pool; SQLite writers contend, keep it at 1.
	MaxConnections int `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize fills defaults for zero-valued fields.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Path == "" {
		cfg.Path = "refurbyte.db"
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
}
