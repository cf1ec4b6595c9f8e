// Package config loads server configuration from an embedded default, an optional TOML file
// and TRIPBOARD_* environment variables.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/domain"
)

//go:embed tripboard.toml
var defaultConfigFile []byte

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"

	minSecretLength = 32
)

type Config struct {
	Env      string
	LogLevel string

	HTTP     HTTPConfig
	Storage  string
	Postgres PostgresConfig
	Mongo    MongoConfig
	Auth     AuthConfig

	Invites    []identity.InviteCode
	AdminCodes []identity.AdminCode
}

type HTTPConfig struct {
	Addr           string
	PublicURL      string
	AllowedOrigins []string
}

type PostgresConfig struct {
	DSN string
}

type MongoConfig struct {
	URI      string
	Database string
}

// AuthConfig configures the HS256 session tokens issued on join.
type AuthConfig struct {
	TokenSecret []byte
	TokenTTL    time.Duration
	Issuer      string
}

type inviteEntry struct {
	Code        string `mapstructure:"code"`
	TripGroup   string `mapstructure:"trip_group"`
	Description string `mapstructure:"description"`
}

type adminEntry struct {
	Code          string `mapstructure:"code"`
	TripGroup     string `mapstructure:"trip_group"`
	ParticipantID string `mapstructure:"participant_id"`
	Name          string `mapstructure:"name"`
	Avatar        string `mapstructure:"avatar"`
}

// Load reads the embedded defaults, then file when it is non-empty, then the environment.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("tripboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(defaultConfigFile)); err != nil {
		return Config{}, fmt.Errorf("read default config: %w", err)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log.level"),
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			PublicURL:      strings.TrimRight(v.GetString("http.public_url"), "/"),
			AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
		},
		Storage:  strings.ToLower(v.GetString("storage.backend")),
		Postgres: PostgresConfig{DSN: v.GetString("postgres.dsn")},
		Mongo:    MongoConfig{URI: v.GetString("mongo.uri"), Database: v.GetString("mongo.database")},
		Auth: AuthConfig{
			TokenSecret: []byte(v.GetString("auth.token_secret")),
			Issuer:      v.GetString("auth.issuer"),
		},
	}

	ttl := v.GetString("auth.token_ttl")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return Config{}, fmt.Errorf("auth.token_ttl must be a duration (e.g. 720h): %w", err)
	}
	if d <= 0 {
		return Config{}, fmt.Errorf("auth.token_ttl must be positive")
	}
	cfg.Auth.TokenTTL = d

	var invites []inviteEntry
	if err := v.UnmarshalKey("invites", &invites); err != nil {
		return Config{}, fmt.Errorf("invites: %w", err)
	}
	for _, e := range invites {
		cfg.Invites = append(cfg.Invites, identity.InviteCode{
			Code:        e.Code,
			TripGroup:   domain.TripGroupID(e.TripGroup),
			Description: e.Description,
		})
	}
	var admins []adminEntry
	if err := v.UnmarshalKey("admin_codes", &admins); err != nil {
		return Config{}, fmt.Errorf("admin_codes: %w", err)
	}
	for _, e := range admins {
		cfg.AdminCodes = append(cfg.AdminCodes, identity.AdminCode{
			Code:          e.Code,
			TripGroup:     domain.TripGroupID(e.TripGroup),
			ParticipantID: domain.ParticipantID(e.ParticipantID),
			Name:          e.Name,
			Avatar:        e.Avatar,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. Development mode tolerates a missing token secret
// and generates one at startup.
func (c Config) Validate() error {
	switch c.Storage {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when storage.backend is postgres")
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required when storage.backend is mongo")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, postgres, mongo (got %q)", c.Storage)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if !c.IsDevelopment() && len(c.Auth.TokenSecret) < minSecretLength {
		return fmt.Errorf("auth.token_secret must be at least %d bytes outside development", minSecretLength)
	}
	if len(c.Invites) == 0 && len(c.AdminCodes) == 0 {
		return fmt.Errorf("at least one entry in invites or admin_codes is required")
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}
