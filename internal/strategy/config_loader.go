package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the top-level YAML structure for strategy parameters.
type configFile struct {
	Strategy Config `yaml:"strategy"`
}

// LoadConfigFile reads strategy parameters from a YAML file, e.g.:
//
//	strategy:
//	  underlying_symbol: "NSE:NIFTY50-INDEX"
//	  fast_period: 9
//	  slow_period: 21
//	  timeframe: "5"
//	  position_size: 1
//	  stop_loss_pct: 2.0
//	  target_pct: 4.0
//	  mode: PAPER
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Strategy, nil
}

// WithDefaults fills unset fields with the stock parameters.
func (c Config) WithDefaults() Config {
	if c.UnderlyingSymbol == "" {
		c.UnderlyingSymbol = "NSE:NIFTY50-INDEX"
	}
	if c.FastPeriod == 0 {
		c.FastPeriod = 9
	}
	if c.SlowPeriod == 0 {
		c.SlowPeriod = 21
	}
	if c.Timeframe == "" {
		c.Timeframe = "5"
	}
	if c.PositionSize == 0 {
		c.PositionSize = 1
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = 2.0
	}
	if c.TargetPct == 0 {
		c.TargetPct = 4.0
	}
	if c.Mode == "" {
		c.Mode = ModePaper
	}
	return c
}

// Validate rejects parameter combinations the engine cannot trade on.
func (c Config) Validate() error {
	if c.UnderlyingSymbol == "" {
		return fmt.Errorf("underlying_symbol is required")
	}
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 {
		return fmt.Errorf("EMA periods must be positive (fast=%d slow=%d)", c.FastPeriod, c.SlowPeriod)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("fast period %d must be shorter than slow period %d", c.FastPeriod, c.SlowPeriod)
	}
	if c.PositionSize <= 0 {
		return fmt.Errorf("position_size must be positive")
	}
	if c.StopLossPct < 0 || c.TargetPct < 0 {
		return fmt.Errorf("stop_loss_pct and target_pct must not be negative")
	}
	if c.Mode != ModePaper && c.Mode != ModeLive {
		return fmt.Errorf("mode must be PAPER or LIVE, got %q", c.Mode)
	}
	return nil
}
