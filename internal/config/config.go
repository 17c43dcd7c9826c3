// Package config loads and validates the engine's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// SimulatorConfig locates the external simulator middleware and the
// network it should load.
type SimulatorConfig struct {
	Endpoint     string `yaml:"endpoint"`
	ConfigPath   string `yaml:"config_path"`
	RouteFile    string `yaml:"route_file"`
	GUI          bool   `yaml:"gui"`
	DialAttempts int    `yaml:"dial_attempts"`
}

// IntersectionConfig declares one controlled junction and its incoming
// lanes. Roster order in the file is the environment's roster order.
type IntersectionConfig struct {
	ID    string   `yaml:"id"`
	Lanes []string `yaml:"lanes"`
}

// ControlConfig holds the per-intersection control constants.
type ControlConfig struct {
	MinGreen       int     `yaml:"min_green"`
	YellowDuration int     `yaml:"yellow_duration"`
	MaxLaneCount   float64 `yaml:"max_lane_count"`
	VerticalToken  string  `yaml:"vertical_token"`
	BusWeight      float64 `yaml:"bus_weight"`
	RewardScale    float64 `yaml:"reward_scale"`
	FavorBonus     float64 `yaml:"favor_bonus"`
	FavorThreshold float64 `yaml:"favor_threshold"`
	WrongPenalty   float64 `yaml:"wrong_penalty"`
	WrongThreshold float64 `yaml:"wrong_threshold"`
}

// TrainingConfig holds the trainable-policy hyperparameters and artifact
// location.
type TrainingConfig struct {
	TotalSteps          int     `yaml:"total_steps"`
	ModelPath           string  `yaml:"model_path"`
	Alpha               float64 `yaml:"alpha"`
	Gamma               float64 `yaml:"gamma"`
	EpsStart            float64 `yaml:"eps_start"`
	EpsFinal            float64 `yaml:"eps_final"`
	ExplorationFraction float64 `yaml:"exploration_fraction"`
	Seed                int64   `yaml:"seed"`
}

// Config holds the engine's runtime configuration.
type Config struct {
	DBPath         string               `yaml:"db_path"`
	Scenario       string               `yaml:"scenario"`
	Simulator      SimulatorConfig      `yaml:"simulator"`
	Roster         []IntersectionConfig `yaml:"roster"`
	Horizon        int                  `yaml:"horizon"`
	BaselinePeriod int                  `yaml:"baseline_period"`
	EvalSteps      int                  `yaml:"eval_steps"`
	Control        ControlConfig        `yaml:"control"`
	Training       TrainingConfig       `yaml:"training"`
}

// Load reads a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scenario == "" {
		c.Scenario = "balanced"
	}
	if c.Simulator.DialAttempts == 0 {
		c.Simulator.DialAttempts = 5
	}
	if c.BaselinePeriod == 0 {
		c.BaselinePeriod = 30
	}
	if c.EvalSteps == 0 {
		c.EvalSteps = 1000
	}

	if c.Control.MinGreen == 0 {
		c.Control.MinGreen = 10
	}
	if c.Control.YellowDuration == 0 {
		c.Control.YellowDuration = 3
	}
	if c.Control.MaxLaneCount == 0 {
		c.Control.MaxLaneCount = 50
	}
	if c.Control.VerticalToken == "" {
		c.Control.VerticalToken = "v_"
	}
	if c.Control.BusWeight == 0 {
		c.Control.BusWeight = 3
	}
	if c.Control.RewardScale == 0 {
		c.Control.RewardScale = 100
	}
	if c.Control.FavorBonus == 0 {
		c.Control.FavorBonus = 1.0
	}
	if c.Control.FavorThreshold == 0 {
		c.Control.FavorThreshold = 5
	}
	if c.Control.WrongPenalty == 0 {
		c.Control.WrongPenalty = 2.0
	}
	if c.Control.WrongThreshold == 0 {
		c.Control.WrongThreshold = 10
	}

	if c.Training.TotalSteps == 0 {
		c.Training.TotalSteps = 200_000
	}
	if c.Training.ModelPath == "" {
		c.Training.ModelPath = "models/greenwave.policy"
	}
	if c.Training.Alpha == 0 {
		c.Training.Alpha = 0.1
	}
	if c.Training.Gamma == 0 {
		c.Training.Gamma = 0.98
	}
	if c.Training.EpsStart == 0 {
		c.Training.EpsStart = 1.0
	}
	if c.Training.EpsFinal == 0 {
		c.Training.EpsFinal = 0.05
	}
	if c.Training.ExplorationFraction == 0 {
		c.Training.ExplorationFraction = 0.3
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = 1
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if c.Simulator.Endpoint == "" {
		problems = append(problems, "simulator.endpoint is required")
	}
	if c.Simulator.ConfigPath == "" {
		problems = append(problems, "simulator.config_path is required")
	}
	if len(c.Roster) == 0 {
		problems = append(problems, "at least one roster intersection is required")
	}
	for i, its := range c.Roster {
		if its.ID == "" {
			problems = append(problems, fmt.Sprintf("roster[%d]: id is required", i))
		}
		if len(its.Lanes) == 0 {
			problems = append(problems, fmt.Sprintf("roster[%d]: lanes are required", i))
		}
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}
