// Package risk turns open positions into a single-currency exposure view.
package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Level is the overall risk rating
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

func (l Level) rank() int {
	switch l {
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether l is a known level
func (l Level) Valid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

func maxLevel(a, b Level) Level {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Thresholds are ratio cut-offs; a value strictly above High is high,
// strictly above Medium is medium
type Thresholds struct {
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

func (t Thresholds) level(v float64) Level {
	switch {
	case v > t.High:
		return LevelHigh
	case v > t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Policy is the rule ladder used to rate an assessment
type Policy struct {
	// Exposure applies to market value / (market value + cash)
	Exposure Thresholds `yaml:"exposure" json:"exposure"`
	// LargestPosition applies to the largest position / total market value
	LargestPosition Thresholds `yaml:"largest_position" json:"largest_position"`
	// Uncoverable is the level reported when cash cannot absorb a full stop-out
	Uncoverable Level `yaml:"uncoverable" json:"uncoverable"`
	// TopN limits the per-instrument exposure list
	TopN int `yaml:"top_n" json:"top_n"`
}

// DefaultPolicy returns the built-in ladder
func DefaultPolicy() Policy {
	return Policy{
		Exposure:        Thresholds{Medium: 0.5, High: 0.8},
		LargestPosition: Thresholds{Medium: 0.25, High: 0.4},
		Uncoverable:     LevelHigh,
		TopN:            10,
	}
}

// Validate checks that every ladder is ordered so a larger ratio never rates lower
func (p Policy) Validate() error {
	for name, t := range map[string]Thresholds{"exposure": p.Exposure, "largest_position": p.LargestPosition} {
		if t.Medium < 0 || t.High < 0 {
			return fmt.Errorf("%s thresholds must not be negative", name)
		}
		if t.Medium > 1 || t.High > 1 {
			return fmt.Errorf("%s thresholds must not exceed 1", name)
		}
		if t.Medium > t.High {
			return fmt.Errorf("%s medium threshold %.4f is above high threshold %.4f", name, t.Medium, t.High)
		}
	}
	if !p.Uncoverable.Valid() {
		return fmt.Errorf("unknown uncoverable level %q", p.Uncoverable)
	}
	if p.TopN < 0 {
		return fmt.Errorf("top_n must not be negative")
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Fields missing from the file keep
// their default values. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read risk policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("failed to parse risk policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("invalid risk policy %s: %w", path, err)
	}
	return policy, nil
}
