package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PATCHTYPER_PLAYER_INITIAL_HEALTH.
// Durations accept Go syntax ("4s", "1500ms") or a bare number of milliseconds,
// so PATCHTYPER_DIFFICULTY_INITIAL_SPAWN_RATE=4000 means four seconds.
const EnvPrefix = "PATCHTYPER"

// HintStyle controls how the fix string of a threat is revealed to the player.
type HintStyle string

const (
	HintNone     HintStyle = "none"
	HintPartial  HintStyle = "partial"
	HintFull     HintStyle = "full"
	HintFloating HintStyle = "floating"
)

// Config holds every tunable of the encounter engine and its presentation.
// The engine reads it as inert data and never mutates it.
type Config struct {
	Player     PlayerConfig     `mapstructure:"player"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Waves      WavesConfig      `mapstructure:"waves"`
	Difficulty DifficultyConfig `mapstructure:"difficulty"`
	Time       TimeConfig       `mapstructure:"time"`
	UI         UIConfig         `mapstructure:"ui"`
	Audio      AudioConfig      `mapstructure:"audio"`
}

// PlayerConfig covers health and the concurrent threat cap.
type PlayerConfig struct {
	InitialHealth        int `mapstructure:"initial_health"`
	MaxThreats           int `mapstructure:"max_threats"`
	HealthRestorePerWave int `mapstructure:"health_restore_per_wave"`
	WrongFixPenalty      int `mapstructure:"wrong_fix_penalty"`
}

// ScoringConfig covers points, time bonus and level-ups.
type ScoringConfig struct {
	TimeBonusThreshold  float64 `mapstructure:"time_bonus_threshold"` // seconds
	MaxTimeBonus        int     `mapstructure:"max_time_bonus"`
	LevelUpThreshold    int     `mapstructure:"level_up_threshold"` // multiplied by the current level
	WaveCompletionBonus int     `mapstructure:"wave_completion_bonus"`
}

// WavesConfig covers wave length and the severity bias horizon.
type WavesConfig struct {
	ThreatsPerWave int `mapstructure:"threats_per_wave"` // multiplied by the wave number
	MaxWaves       int `mapstructure:"max_waves"`
}

// DifficultyConfig covers the spawn and expiry-check cadence.
type DifficultyConfig struct {
	InitialSpawnRate    time.Duration `mapstructure:"initial_spawn_rate"`
	SpawnRateDecrease   time.Duration `mapstructure:"spawn_rate_decrease"`
	MinSpawnRate        time.Duration `mapstructure:"min_spawn_rate"`
	ThreatCheckInterval time.Duration `mapstructure:"threat_check_interval"`
}

// TimeConfig covers per-threat time budgets.
type TimeConfig struct {
	TimePerCard          float64 `mapstructure:"time_per_card"` // seconds
	TimeMultiplier       float64 `mapstructure:"time_multiplier"`
	TimeReductionPerWave float64 `mapstructure:"time_reduction_per_wave"`
	MinTimePercentage    float64 `mapstructure:"min_time_percentage"`
}

// UIConfig covers fix hints.
type UIConfig struct {
	ShowFixHint bool      `mapstructure:"show_fix_hint"`
	HintStyle   HintStyle `mapstructure:"hint_style"`
}

// AudioConfig covers local sound playback.
type AudioConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Volume  float64 `mapstructure:"volume"` // 0..1
}

// Default returns the stock game balance.
func Default() Config {
	return Config{
		Player: PlayerConfig{
			InitialHealth:        300,
			MaxThreats:           6,
			HealthRestorePerWave: 20,
			WrongFixPenalty:      5,
		},
		Scoring: ScoringConfig{
			TimeBonusThreshold:  10,
			MaxTimeBonus:        10,
			LevelUpThreshold:    100,
			WaveCompletionBonus: 50,
		},
		Waves: WavesConfig{
			ThreatsPerWave: 5,
			MaxWaves:       10,
		},
		Difficulty: DifficultyConfig{
			InitialSpawnRate:    4000 * time.Millisecond,
			SpawnRateDecrease:   300 * time.Millisecond,
			MinSpawnRate:        1000 * time.Millisecond,
			ThreatCheckInterval: 500 * time.Millisecond,
		},
		Time: TimeConfig{
			TimePerCard:          20,
			TimeMultiplier:       1.5,
			TimeReductionPerWave: 0.05,
			MinTimePercentage:    0.6,
		},
		UI: UIConfig{
			ShowFixHint: true,
			HintStyle:   HintFloating,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  0.5,
		},
	}
}

// Load builds the configuration from defaults, an optional file and
// PATCHTYPER_* environment overrides, in increasing precedence.
// An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		millisecondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook reads bare numbers bound for a duration as milliseconds.
// Anything else is left to the string duration hook.
func millisecondsHook(f, t reflect.Type, data any) (any, error) {
	if t != durationType || f == durationType {
		return data, nil
	}
	v := reflect.ValueOf(data)
	switch f.Kind() {
	case reflect.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return data, nil
		}
		return time.Duration(n) * time.Millisecond, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(v.Int()) * time.Millisecond, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(v.Uint()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(v.Float() * float64(time.Millisecond)), nil
	}
	return data, nil
}

// setDefaults registers every key so that environment overrides resolve
// during Unmarshal even when no file mentions the key.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("player.initial_health", d.Player.InitialHealth)
	v.SetDefault("player.max_threats", d.Player.MaxThreats)
	v.SetDefault("player.health_restore_per_wave", d.Player.HealthRestorePerWave)
	v.SetDefault("player.wrong_fix_penalty", d.Player.WrongFixPenalty)

	v.SetDefault("scoring.time_bonus_threshold", d.Scoring.TimeBonusThreshold)
	v.SetDefault("scoring.max_time_bonus", d.Scoring.MaxTimeBonus)
	v.SetDefault("scoring.level_up_threshold", d.Scoring.LevelUpThreshold)
	v.SetDefault("scoring.wave_completion_bonus", d.Scoring.WaveCompletionBonus)

	v.SetDefault("waves.threats_per_wave", d.Waves.ThreatsPerWave)
	v.SetDefault("waves.max_waves", d.Waves.MaxWaves)

	v.SetDefault("difficulty.initial_spawn_rate", d.Difficulty.InitialSpawnRate)
	v.SetDefault("difficulty.spawn_rate_decrease", d.Difficulty.SpawnRateDecrease)
	v.SetDefault("difficulty.min_spawn_rate", d.Difficulty.MinSpawnRate)
	v.SetDefault("difficulty.threat_check_interval", d.Difficulty.ThreatCheckInterval)

	v.SetDefault("time.time_per_card", d.Time.TimePerCard)
	v.SetDefault("time.time_multiplier", d.Time.TimeMultiplier)
	v.SetDefault("time.time_reduction_per_wave", d.Time.TimeReductionPerWave)
	v.SetDefault("time.min_time_percentage", d.Time.MinTimePercentage)

	v.SetDefault("ui.show_fix_hint", d.UI.ShowFixHint)
	v.SetDefault("ui.hint_style", string(d.UI.HintStyle))

	v.SetDefault("audio.enabled", d.Audio.Enabled)
	v.SetDefault("audio.volume", d.Audio.Volume)
}

// Validate reports every setting that would break an engine invariant.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Player.InitialHealth > 0, "player.initial_health must be positive, got %d", c.Player.InitialHealth)
	check(c.Player.MaxThreats > 0, "player.max_threats must be positive, got %d", c.Player.MaxThreats)
	check(c.Player.HealthRestorePerWave >= 0, "player.health_restore_per_wave must not be negative")
	check(c.Player.WrongFixPenalty >= 0, "player.wrong_fix_penalty must not be negative")

	check(c.Scoring.TimeBonusThreshold >= 0, "scoring.time_bonus_threshold must not be negative")
	check(c.Scoring.MaxTimeBonus >= 0, "scoring.max_time_bonus must not be negative")
	check(c.Scoring.LevelUpThreshold > 0, "scoring.level_up_threshold must be positive, got %d", c.Scoring.LevelUpThreshold)
	check(c.Scoring.WaveCompletionBonus >= 0, "scoring.wave_completion_bonus must not be negative")

	check(c.Waves.ThreatsPerWave > 0, "waves.threats_per_wave must be positive, got %d", c.Waves.ThreatsPerWave)
	check(c.Waves.MaxWaves > 0, "waves.max_waves must be positive, got %d", c.Waves.MaxWaves)

	check(c.Difficulty.InitialSpawnRate > 0, "difficulty.initial_spawn_rate must be positive")
	check(c.Difficulty.SpawnRateDecrease >= 0, "difficulty.spawn_rate_decrease must not be negative")
	check(c.Difficulty.MinSpawnRate > 0, "difficulty.min_spawn_rate must be positive")
	check(c.Difficulty.MinSpawnRate <= c.Difficulty.InitialSpawnRate,
		"difficulty.min_spawn_rate %s exceeds initial_spawn_rate %s",
		c.Difficulty.MinSpawnRate, c.Difficulty.InitialSpawnRate)
	check(c.Difficulty.ThreatCheckInterval > 0, "difficulty.threat_check_interval must be positive")

	check(c.Time.TimePerCard > 0, "time.time_per_card must be positive")
	check(c.Time.TimeMultiplier > 0, "time.time_multiplier must be positive")
	check(c.Time.TimeReductionPerWave >= 0, "time.time_reduction_per_wave must not be negative")
	check(c.Time.MinTimePercentage > 0 && c.Time.MinTimePercentage <= 1,
		"time.min_time_percentage must be in (0, 1], got %v", c.Time.MinTimePercentage)

	switch c.UI.HintStyle {
	case HintNone, HintPartial, HintFull, HintFloating:
	default:
		errs = append(errs, fmt.Errorf("ui.hint_style %q is not one of none, partial, full, floating", c.UI.HintStyle))
	}
	check(c.Audio.Volume >= 0 && c.Audio.Volume <= 1, "audio.volume must be in [0, 1], got %v", c.Audio.Volume)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
