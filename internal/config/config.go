// Package config provides YAML-based configuration loading for the arcade
// server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkarpov/netarcade/internal/games/pong"
	"github.com/dkarpov/netarcade/internal/games/tetris"
	"github.com/dkarpov/netarcade/internal/tournament"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Pong       pong.Config      `yaml:"pong"`
	Tetris     tetris.Config    `yaml:"tetris"`
	Tournament TournamentConfig `yaml:"tournament"`
}

// ServerConfig covers the listener and room housekeeping.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RoomDestroyDelay is how long a finished room lingers before
	// room_destroyed.
	RoomDestroyDelay Duration `yaml:"room_destroy_delay"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig locates the token signing key and gates guest access.
type AuthConfig struct {
	KeyDir   string   `yaml:"key_dir"`
	TokenTTL Duration `yaml:"token_ttl"`
	// AllowGuests lets connections without a token in under an alias.
	AllowGuests bool `yaml:"allow_guests"`
}

// TournamentConfig mirrors tournament.Config in YAML-friendly form.
type TournamentConfig struct {
	AnnounceCountdown Duration `yaml:"announce_countdown"`
	RepairDelay       Duration `yaml:"repair_delay"`
	DestroyGrace      Duration `yaml:"destroy_grace"`
	MinPlayers        int      `yaml:"min_players"`
}

// Tournament converts to the scheduler's own config type.
func (c TournamentConfig) Tournament() tournament.Config {
	return tournament.Config{
		AnnounceCountdown: c.AnnounceCountdown.Std(),
		RepairDelay:       c.RepairDelay.Std(),
		DestroyGrace:      c.DestroyGrace.Std(),
		MinPlayers:        c.MinPlayers,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	tc := tournament.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:             ":8080",
			RoomDestroyDelay: Duration(5 * time.Second),
		},
		Storage: StorageConfig{
			Path: "~/.netarcade/arcade.db",
		},
		Auth: AuthConfig{
			KeyDir:      "~/.netarcade",
			TokenTTL:    Duration(24 * time.Hour),
			AllowGuests: true,
		},
		Pong:   pong.DefaultConfig(),
		Tetris: tetris.DefaultConfig(),
		Tournament: TournamentConfig{
			AnnounceCountdown: Duration(tc.AnnounceCountdown),
			RepairDelay:       Duration(tc.RepairDelay),
			DestroyGrace:      Duration(tc.DestroyGrace),
			MinPlayers:        tc.MinPlayers,
		},
	}
}
