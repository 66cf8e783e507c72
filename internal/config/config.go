// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Daily     DailyConfig     `mapstructure:"daily"`
	Duel      DuelConfig      `mapstructure:"duel"`
	Games     GamesConfig     `mapstructure:"games"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// GuildID scopes slash command registration; empty registers globally.
	GuildID string `mapstructure:"guild_id"`
}

// TelegramConfig holds the optional Telegram frontend configuration.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []string `mapstructure:"chats"`
}

// DailyConfig holds daily reward configuration.
type DailyConfig struct {
	Reward        int64 `mapstructure:"reward"`
	CooldownHours int   `mapstructure:"cooldown_hours"`
}

// DuelConfig holds the session engine configuration.
type DuelConfig struct {
	MinBet        int64         `mapstructure:"min_bet"`
	TaxPercent    int64         `mapstructure:"tax_percent"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	LobbyTimeout  time.Duration `mapstructure:"lobby_timeout"`
	Countdown     time.Duration `mapstructure:"countdown"`
	RematchWindow time.Duration `mapstructure:"rematch_window"`
	AIThinkMin    time.Duration `mapstructure:"ai_think_min"`
	AIThinkMax    time.Duration `mapstructure:"ai_think_max"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// GamesConfig holds per-game tuning tables.
type GamesConfig struct {
	AI        AIConfig        `mapstructure:"ai"`
	RPS       RPSConfig       `mapstructure:"rps"`
	Roulette  RouletteConfig  `mapstructure:"roulette"`
	Minefield MinefieldConfig `mapstructure:"minefield"`
	Fight     FightConfig     `mapstructure:"fight"`
	Blackjack BlackjackConfig `mapstructure:"blackjack"`
	Dice      DiceConfig      `mapstructure:"dice"`
}

// AIConfig holds the chance that an AI opponent plays a random move, per difficulty.
type AIConfig struct {
	EasyErrorRate   float64 `mapstructure:"easy_error_rate"`
	MediumErrorRate float64 `mapstructure:"medium_error_rate"`
	HardErrorRate   float64 `mapstructure:"hard_error_rate"`
}

// RPSConfig holds rock-paper-scissors configuration.
type RPSConfig struct {
	Wins int `mapstructure:"wins"`
}

// RouletteConfig holds russian roulette configuration.
type RouletteConfig struct {
	Chambers int `mapstructure:"chambers"`
}

// MinefieldConfig holds minefield configuration.
type MinefieldConfig struct {
	Cells int `mapstructure:"cells"`
	Mines int `mapstructure:"mines"`
}

// FightConfig holds HP duel configuration.
type FightConfig struct {
	HP        int            `mapstructure:"hp"`
	AttackMin int            `mapstructure:"attack_min"`
	AttackMax int            `mapstructure:"attack_max"`
	HealMin   int            `mapstructure:"heal_min"`
	HealMax   int            `mapstructure:"heal_max"`
	Heals     int            `mapstructure:"heals"`
	CritTable map[string]int `mapstructure:"crit_table"` // damage multiplier in percent -> weight
}

// BlackjackConfig holds the AI stand thresholds.
type BlackjackConfig struct {
	HardStand   int `mapstructure:"hard_stand"`
	MediumStand int `mapstructure:"medium_stand"`
}

// DiceConfig holds dice duel configuration.
type DiceConfig struct {
	RollOffs int `mapstructure:"roll_offs"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DISCORD_TOKEN, DATABASE_HOST, DUEL_TAX_PERCENT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Tokens have empty defaults so AutomaticEnv can fill them during Unmarshal
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("telegram.token", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "duelbot")
	v.SetDefault("database.name", "duelbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Daily reward defaults
	v.SetDefault("daily.reward", 500)
	v.SetDefault("daily.cooldown_hours", 24)

	// Duel engine defaults
	v.SetDefault("duel.min_bet", 100)
	v.SetDefault("duel.tax_percent", 5)
	v.SetDefault("duel.action_timeout", "60s")
	v.SetDefault("duel.lobby_timeout", "60s")
	v.SetDefault("duel.countdown", "3s")
	v.SetDefault("duel.rematch_window", "60s")
	v.SetDefault("duel.ai_think_min", "1s")
	v.SetDefault("duel.ai_think_max", "3s")
	v.SetDefault("duel.session_ttl", "30m")
	v.SetDefault("duel.sweep_interval", "1m")

	// Game tuning defaults
	v.SetDefault("games.ai.easy_error_rate", 0.4)
	v.SetDefault("games.ai.medium_error_rate", 0.15)
	v.SetDefault("games.ai.hard_error_rate", 0.0)
	v.SetDefault("games.rps.wins", 2)
	v.SetDefault("games.roulette.chambers", 6)
	v.SetDefault("games.minefield.cells", 16)
	v.SetDefault("games.minefield.mines", 4)
	v.SetDefault("games.fight.hp", 100)
	v.SetDefault("games.fight.attack_min", 10)
	v.SetDefault("games.fight.attack_max", 25)
	v.SetDefault("games.fight.heal_min", 10)
	v.SetDefault("games.fight.heal_max", 20)
	v.SetDefault("games.fight.heals", 2)
	v.SetDefault("games.fight.crit_table", map[string]int{"100": 70, "150": 25, "200": 5})
	v.SetDefault("games.blackjack.hard_stand", 17)
	v.SetDefault("games.blackjack.medium_stand", 15)
	v.SetDefault("games.dice.roll_offs", 3)
}

// Five rows of five buttons is the most a chat keyboard can carry.
const maxMinefieldCells = 25

// Validate checks values that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Duel.TaxPercent < 0 || c.Duel.TaxPercent > 100 {
		return fmt.Errorf("duel.tax_percent must be between 0 and 100, got %d", c.Duel.TaxPercent)
	}
	if c.Duel.MinBet < 0 {
		return fmt.Errorf("duel.min_bet must not be negative, got %d", c.Duel.MinBet)
	}
	if c.Duel.AIThinkMax < c.Duel.AIThinkMin {
		return fmt.Errorf("duel.ai_think_max (%s) is below duel.ai_think_min (%s)", c.Duel.AIThinkMax, c.Duel.AIThinkMin)
	}
	if c.Games.Minefield.Cells > maxMinefieldCells {
		return fmt.Errorf("games.minefield.cells must be at most %d, got %d", maxMinefieldCells, c.Games.Minefield.Cells)
	}
	if c.Games.Minefield.Mines >= c.Games.Minefield.Cells {
		return fmt.Errorf("games.minefield.mines (%d) must be below games.minefield.cells (%d)",
			c.Games.Minefield.Mines, c.Games.Minefield.Cells)
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID string) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
