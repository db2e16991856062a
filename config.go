package terninger

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mika76/terninger/internal/scheduler"
)

// FileConfig is the on-disk, YAML-tagged shape of the knobs exposed as
// functional options on the Generator Facade and the scheduler Worker. It
// is read by the CLI's --config flag; library callers should prefer Option
// values directly.
type FileConfig struct {
	ID string `yaml:"id,omitempty"`

	HighPoolZeroThreshold  uint64 `yaml:"high_pool_zero_threshold,omitempty"`
	NormalMinPoolThreshold uint64 `yaml:"normal_min_pool_threshold,omitempty"`
	LowMinPoolThreshold    uint64 `yaml:"low_min_pool_threshold,omitempty"`

	HighSleep   time.Duration `yaml:"high_sleep,omitempty"`
	NormalSleep time.Duration `yaml:"normal_sleep,omitempty"`
	LowSleep    time.Duration `yaml:"low_sleep,omitempty"`

	MinReseedInterval            time.Duration `yaml:"min_reseed_interval,omitempty"`
	ParallelPollBound            int           `yaml:"parallel_poll_bound,omitempty"`
	SourceFaultDemotionThreshold int           `yaml:"source_fault_demotion_threshold,omitempty"`

	SeedStatePath     string        `yaml:"seed_state_path,omitempty"`
	SeedStateInterval time.Duration `yaml:"seed_state_interval,omitempty"`
}

// LoadFileConfig reads and parses a YAML config file. A missing path is not
// an error: it returns a zero-value FileConfig so callers can layer flags
// and defaults over it uniformly.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// Options translates a FileConfig into Generator Options. Zero-valued
// fields are left at their scheduler.DefaultConfig defaults.
func (fc FileConfig) Options() []Option {
	var opts []Option
	if fc.ID != "" {
		opts = append(opts, WithID(fc.ID))
	}

	def := scheduler.DefaultConfig()

	high := fc.HighPoolZeroThreshold
	if high == 0 {
		high = def.HighPoolZeroThreshold
	}
	normal := fc.NormalMinPoolThreshold
	if normal == 0 {
		normal = def.NormalMinPoolThreshold
	}
	low := fc.LowMinPoolThreshold
	if low == 0 {
		low = def.LowMinPoolThreshold
	}
	opts = append(opts, WithSchedulerOptions(scheduler.WithThresholds(high, normal, low)))

	highSleep := fc.HighSleep
	if highSleep == 0 {
		highSleep = def.HighSleep
	}
	normalSleep := fc.NormalSleep
	if normalSleep == 0 {
		normalSleep = def.NormalSleep
	}
	lowSleep := fc.LowSleep
	if lowSleep == 0 {
		lowSleep = def.LowSleep
	}
	opts = append(opts, WithSchedulerOptions(scheduler.WithSleepIntervals(highSleep, normalSleep, lowSleep)))

	if fc.MinReseedInterval > 0 {
		opts = append(opts, WithSchedulerOptions(scheduler.WithMinReseedInterval(fc.MinReseedInterval)))
	}
	if fc.ParallelPollBound > 0 {
		opts = append(opts, WithSchedulerOptions(scheduler.WithParallelPollBound(fc.ParallelPollBound)))
	}
	if fc.SourceFaultDemotionThreshold > 0 {
		opts = append(opts, WithSchedulerOptions(scheduler.WithSourceFaultDemotionThreshold(fc.SourceFaultDemotionThreshold)))
	}

	return opts
}
