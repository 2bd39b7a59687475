// Package config loads the zone server's YAML configuration.
//
// The legacy .conf/INI file format and its parser are an external
// collaborator and are not reimplemented here; this package defines
// only the structured shape the core consumes, loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HashAlgorithm selects the password digest algorithm.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "MD5"
	HashSHA256 HashAlgorithm = "SHA256"
	HashSHA512 HashAlgorithm = "SHA512"
)

// HashEncoding selects the digest's text encoding.
type HashEncoding string

const (
	EncodingHex    HashEncoding = "hex"
	EncodingBase64 HashEncoding = "Base64"
)

// AuthConfig mirrors passwd.conf [General].
type AuthConfig struct {
	HashAlgorithm                      HashAlgorithm `yaml:"hash_algorithm"`
	HashEncoding                       HashEncoding  `yaml:"hash_encoding"`
	AllowUnknown                       bool          `yaml:"allow_unknown"`
	RequireAuthenticationToSetPassword bool          `yaml:"require_authentication_to_set_password"`
}

// BrickConfig mirrors arena [Brick].
type BrickConfig struct {
	CountBricksAsWalls bool   `yaml:"count_bricks_as_walls"`
	BrickSpan          int    `yaml:"brick_span"`
	BrickMode          string `yaml:"brick_mode"`
	BrickTime          int    `yaml:"brick_time"` // ticks (10ms units)
}

// RoutingConfig mirrors arena [Routing].
type RoutingConfig struct {
	WallResendCount int `yaml:"wall_resend_count"` // 0..3
}

// GeneralConfig mirrors arena [General].
type GeneralConfig struct {
	Map            string   `yaml:"map"`
	LevelFiles     []string `yaml:"level_files"` // "+name" marks an optional LVZ companion
	LvlSearchPaths []string `yaml:"lvl_search_paths"` // %b=base_name, %m=map_name
}

// SplitLevelFiles separates LevelFiles into level files proper and the
// optional LVZ companions marked with a "+" prefix.
func (g GeneralConfig) SplitLevelFiles() (levels, optionalLvz []string) {
	for _, name := range g.LevelFiles {
		if rest, ok := strings.CutPrefix(name, "+"); ok {
			optionalLvz = append(optionalLvz, rest)
			continue
		}
		levels = append(levels, name)
	}
	return levels, optionalLvz
}

// CostConfig mirrors arena [Cost]: per-item purchase prices. A zero or
// absent cost disables purchase of that item.
type CostConfig map[string]int

// Purchasable reports whether item can be bought at all.
func (c CostConfig) Purchasable(item string) bool {
	return c[item] > 0
}

// RenameArena maps a remote arena name to a local one for peer display.
type RenameArena struct {
	Remote string `yaml:"remote"`
	Local  string `yaml:"local"`
}

// PeerConfig mirrors one global [PeerN] section.
type PeerConfig struct {
	Address               string        `yaml:"address"`
	Port                  int           `yaml:"port"`
	Password              string        `yaml:"password"`
	SendOnly              bool          `yaml:"send_only"`
	SendPlayerList        bool          `yaml:"send_player_list"`
	SendZeroPlayerCount   bool          `yaml:"send_zero_player_count"`
	SendMessages          bool          `yaml:"send_messages"`
	ReceiveMessages       bool          `yaml:"receive_messages"`
	IncludeInPopulation   bool          `yaml:"include_in_population"`
	ProvidesDefaultArenas bool          `yaml:"provides_default_arenas"`
	Arenas                []string      `yaml:"arenas"`
	SendDummyArenas       []string      `yaml:"send_dummy_arenas"`
	RelayArenas           []string      `yaml:"relay_arenas"`
	RenameArenas          []RenameArena `yaml:"rename_arenas"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns int32 `yaml:"max_conns"`
	MinConns int32 `yaml:"min_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

// ChatConfig configures the simple-chat-protocol TCP listener.
type ChatConfig struct {
	BindAddress    string `yaml:"bind_address"`
	Port           int    `yaml:"port"`
	MessageDelayMs int    `yaml:"message_delay_ms"` // default 200
	InBufferSize   int    `yaml:"in_buffer_size"`
}

// ZoneConfig is the full configuration for one zone server process.
type ZoneConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	LogLevel string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`

	Auth    AuthConfig    `yaml:"auth"`
	General GeneralConfig `yaml:"general"`
	Brick   BrickConfig   `yaml:"brick"`
	Routing RoutingConfig `yaml:"routing"`
	Cost    CostConfig    `yaml:"cost"`
	Chat    ChatConfig    `yaml:"chat"`
	Peers   []PeerConfig  `yaml:"peers"`

	// HoldTimeoutMs bounds how long an arena may wait on outstanding
	// PreCreate holds before it is fatal-to-arena.
	HoldTimeoutMs int `yaml:"hold_timeout_ms"`
}

// Default returns a ZoneConfig carrying the documented defaults.
func Default() ZoneConfig {
	return ZoneConfig{
		BindAddress: "0.0.0.0",
		Port:        5000,
		LogLevel:    "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "zoneserver",
			Password: "zoneserver",
			DBName:   "zoneserver",
			SSLMode:  "disable",
		},
		Auth: AuthConfig{
			HashAlgorithm:                      HashMD5,
			HashEncoding:                       EncodingHex,
			AllowUnknown:                       true,
			RequireAuthenticationToSetPassword: true,
		},
		General: GeneralConfig{
			Map:            "level.lvl",
			LvlSearchPaths: []string{"arenas/%b/%m", "maps/%m"},
		},
		Brick: BrickConfig{
			CountBricksAsWalls: true,
			BrickSpan:          10,
			BrickMode:          "Lateral",
			BrickTime:          6000,
		},
		Routing: RoutingConfig{
			WallResendCount: 0,
		},
		Chat: ChatConfig{
			BindAddress:    "0.0.0.0",
			Port:           5001,
			MessageDelayMs: 200,
			InBufferSize:   4096,
		},
		HoldTimeoutMs: 10000,
	}
}

// Load reads a ZoneConfig from a YAML file. If the file doesn't exist,
// it returns the defaults.
func Load(path string) (ZoneConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
