// internal/config/model.go
//
// Typed configuration model for splitlink.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `SPLITLINK_`-prefixed environment overrides – highest precedence.
//
// Secrets may be written as `vault:<mount/path>#<key>`.  The loader keeps the
// reference verbatim; cmd/web resolves it through internal/vault before the
// value is used, so Vault stays optional for local runs.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Defaults() seeds every optional knob; YAML and env only override.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// App section
//

// App carries the public origin every redirect template must start with.
type App struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template stays in YAML so operators can tweak host, port, or flags
// without touching Vault.  `Password`, when set, replaces whatever password the
// DSN carries.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"min=1"`
	MaxIdle  int    `koanf:"max_idle" validate:"min=0"`
}

//
// Redirect section
//

// Redirect tunes the redirect hot path.
type Redirect struct {
	// ClickIDMaxAge bounds how old the last visit may be before click_id and
	// click_timestamp stop being attached.
	ClickIDMaxAge time.Duration `koanf:"click_id_max_age" validate:"gte=0"`
}

//
// Forms section
//

// Forms configures the field-mapping cache and the external schema service.
type Forms struct {
	Enabled       bool          `koanf:"enabled"`
	HostPattern   string        `koanf:"host_pattern"   validate:"required"`
	SchemaURL     string        `koanf:"schema_url"     validate:"omitempty,url"`
	Secret        string        `koanf:"secret"`
	FieldTTL      time.Duration `koanf:"field_ttl"      validate:"gt=0"`
	SchemaTTL     time.Duration `koanf:"schema_ttl"     validate:"gt=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"min=1"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	Timeout       time.Duration `koanf:"timeout"        validate:"gt=0"`
	Retries       int           `koanf:"retries"        validate:"min=0,max=3"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database.  Empty disables lookups.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // SPLITLINK_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	App      App      `koanf:"app"`
	Database Database `koanf:"database"`
	Redirect Redirect `koanf:"redirect"`
	Forms    Forms    `koanf:"forms"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// Defaults returns a Config pre-filled with every optional value.
func Defaults() Config {
	return Config{
		HTTP: HTTP{ListenAddr: ":8080"},
		Database: Database{
			MaxOpen: 15,
			MaxIdle: 5,
		},
		Redirect: Redirect{ClickIDMaxAge: 60 * time.Second},
		Forms: Forms{
			HostPattern:   "docs.google.com/forms",
			FieldTTL:      15 * time.Minute,
			SchemaTTL:     2 * time.Minute,
			MaxEntries:    10000,
			SweepInterval: 5 * time.Minute,
			Timeout:       5 * time.Second,
			Retries:       1,
		},
	}
}
