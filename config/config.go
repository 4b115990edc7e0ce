// Package config loads runtime configuration for leaguemesh processes from the
// environment and league definitions from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/leaguemesh/store"
)

// Store driver names accepted in configuration.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the process-level configuration, read from LEAGUEMESH_* variables.
type Config struct {
	// LeagueID identifies the league run this process participates in.
	LeagueID string `env:"LEAGUE_ID" envDefault:"league-local"`

	// ListenAddr is the address this agent serves its RPC endpoint on.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":0"`

	// CoordinatorEndpoint is the base URL of the coordinator, for referee and
	// player processes.
	CoordinatorEndpoint string `env:"COORDINATOR_ENDPOINT" envDefault:"http://localhost:8600"`

	// StoreDriver selects the persistence backend: memory, file or sqlite.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`

	// DataDir is the root directory for file and sqlite persistence.
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// JoinTimeout bounds invitation acknowledgment.
	JoinTimeout time.Duration `env:"JOIN_TIMEOUT" envDefault:"5s"`

	// ChoiceTimeout bounds parity choice collection.
	ChoiceTimeout time.Duration `env:"CHOICE_TIMEOUT" envDefault:"30s"`

	// MaxConcurrentMatches bounds how many matches a referee drives at once.
	MaxConcurrentMatches int `env:"MAX_CONCURRENT_MATCHES" envDefault:"3"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is json or text.
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "LEAGUEMESH_"})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.JoinTimeout <= 0 || c.ChoiceTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxConcurrentMatches < 1 {
		return fmt.Errorf("max concurrent matches must be at least 1")
	}
	return nil
}

// OpenStore constructs the persistence backend named by StoreDriver.
func (c Config) OpenStore() (store.Store, error) {
	switch c.StoreDriver {
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreFile:
		return store.NewFileStore(c.DataDir)
	case StoreSQLite:
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return store.NewSQLiteStore(filepath.Join(c.DataDir, "league.db"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
}

// PlayerSpec declares one player of a league definition.
type PlayerSpec struct {
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// RefereeSpec declares one referee of a league definition.
type RefereeSpec struct {
	Name                 string `yaml:"name"`
	Endpoint             string `yaml:"endpoint,omitempty"`
	MaxConcurrentMatches int    `yaml:"max_concurrent_matches,omitempty"`
}

// LeagueFile is a declarative league definition used by the demo runner: who
// plays, with which strategy, refereed by whom.
type LeagueFile struct {
	LeagueID string        `yaml:"league_id"`
	GameType string        `yaml:"game_type,omitempty"`
	Seed     int64         `yaml:"seed,omitempty"`
	Players  []PlayerSpec  `yaml:"players"`
	Referees []RefereeSpec `yaml:"referees"`
}

// LoadLeagueFile parses and validates a YAML league definition.
func LoadLeagueFile(path string) (LeagueFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LeagueFile{}, fmt.Errorf("read league file: %w", err)
	}

	var lf LeagueFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return LeagueFile{}, fmt.Errorf("parse league file: %w", err)
	}

	if lf.LeagueID == "" {
		return LeagueFile{}, fmt.Errorf("league file: league_id is required")
	}
	if len(lf.Players) < 2 {
		return LeagueFile{}, fmt.Errorf("league file: need at least 2 players, got %d", len(lf.Players))
	}
	if len(lf.Referees) == 0 {
		return LeagueFile{}, fmt.Errorf("league file: need at least 1 referee")
	}
	for i, p := range lf.Players {
		if p.Name == "" {
			return LeagueFile{}, fmt.Errorf("league file: players[%d]: name is required", i)
		}
	}
	for i, r := range lf.Referees {
		if r.Name == "" {
			return LeagueFile{}, fmt.Errorf("league file: referees[%d]: name is required", i)
		}
	}
	return lf, nil
}
