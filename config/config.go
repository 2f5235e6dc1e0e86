package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsops/sops/v3/decrypt"
)

const (
	// DefaultEndpoint is the users endpoint the directory page is built from
	DefaultEndpoint = "https://jsonplaceholder.typicode.com/users"
	// DefaultFetchTimeout is the watchdog applied to the single fetch
	DefaultFetchTimeout = 5 * time.Second
	// DefaultLoadingDelay is the pause before the fetch starts, so the loading state is visible
	DefaultLoadingDelay = 2 * time.Second
)

// Snapshot store kinds
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Duration is a time.Duration that reads and writes as a string ("5s") in JSON
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// FetcherConfig configures the outbound users request
type FetcherConfig struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// PageConfig configures the rendered directory page
type PageConfig struct {
	Title        string   `json:"title"`
	LoadingDelay Duration `json:"loadingDelay"`
}

// ServerConfig configures the page server
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port"`
}

// Addr returns the listen address
func (sc *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

// SnapshotConfig selects where prefetched data is kept
type SnapshotConfig struct {
	Store string `json:"store"`
	Path  string `json:"path"`
}

// ShardConfig represents configuration for a single shard
type ShardConfig struct {
	ShardID  int              `json:"shardId"`
	Primary  DatabaseConfig   `json:"primary"`
	Replicas []DatabaseConfig `json:"replicas"`
}

// DatabaseConfig represents a single database connection configuration
type DatabaseConfig struct {
	Driver   string `json:"driver,omitempty"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbName"`
}

// Config holds the complete application configuration
type Config struct {
	Fetcher  FetcherConfig  `json:"fetcher"`
	Page     PageConfig     `json:"page"`
	Server   ServerConfig   `json:"server"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Shards   []ShardConfig  `json:"shards"`
}

// ConnectionString returns a PostgreSQL connection string
func (dc *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dc.Host, dc.Port, dc.User, dc.Password, dc.DBName,
	)
}

// DriverName returns the database/sql driver to open the connection with.
// "pgx" is registered by the sharding package, "postgres" by lib/pq in main.
func (dc *DatabaseConfig) DriverName() string {
	if dc.Driver == "" {
		return "pgx"
	}
	return dc.Driver
}

// DefaultConfig returns the default configuration: the public users endpoint,
// a file snapshot store and 3 shards with 1 replica each for the postgres store
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  Duration{DefaultFetchTimeout},
		},
		Page: PageConfig{
			Title:        "Users",
			LoadingDelay: Duration{DefaultLoadingDelay},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Snapshot: SnapshotConfig{
			Store: StoreFile,
			Path:  "users.snapshot.cbor",
		},
		Shards: []ShardConfig{
			defaultShard(0, 5440),
			defaultShard(1, 5442),
			defaultShard(2, 5444),
		},
	}
}

func defaultShard(id, primaryPort int) ShardConfig {
	dbName := fmt.Sprintf("shard%d", id)
	return ShardConfig{
		ShardID: id,
		Primary: DatabaseConfig{
			Host:     "localhost",
			Port:     primaryPort,
			User:     "postgres",
			Password: "postgres",
			DBName:   dbName,
		},
		Replicas: []DatabaseConfig{
			{
				Host:     "localhost",
				Port:     primaryPort + 1,
				User:     "postgres",
				Password: "postgres",
				DBName:   dbName,
			},
		},
	}
}

// Load reads a JSON config file on top of DefaultConfig.
// Files named *.enc.json are decrypted with SOPS first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if isEncrypted(path) {
		data, err = decrypt.Data(data, "json")
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt config file %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

func isEncrypted(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ".enc.json")
}

// Validate checks the values the page cannot work without
func (c *Config) Validate() error {
	u, err := url.Parse(c.Fetcher.Endpoint)
	if err != nil {
		return fmt.Errorf("fetcher endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("fetcher endpoint must be http(s): %q", c.Fetcher.Endpoint)
	}
	if c.Fetcher.Timeout.Duration <= 0 {
		return fmt.Errorf("fetcher timeout must be positive")
	}
	if c.Page.LoadingDelay.Duration < 0 {
		return fmt.Errorf("page loading delay must not be negative")
	}

	// Shards are addressed by position, so ids must match it
	for i, shard := range c.Shards {
		if shard.ShardID != i {
			return fmt.Errorf("shard %d has shardId %d, want %d", i, shard.ShardID, i)
		}
	}

	switch c.Snapshot.Store {
	case StoreFile:
		if c.Snapshot.Path == "" {
			return fmt.Errorf("snapshot path is required for the file store")
		}
	case StorePostgres:
		if len(c.Shards) == 0 {
			return fmt.Errorf("postgres snapshot store needs at least one shard")
		}
	default:
		return fmt.Errorf("unknown snapshot store %q", c.Snapshot.Store)
	}

	return nil
}
