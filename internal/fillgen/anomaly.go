package fillgen

import (
	"fmt"
	"math/rand"
	"time"

	"riskcore/internal/schema"
)

// AnomalyConfig controls fill stream perturbations.
type AnomalyConfig struct {
	Seed       int64
	SpikeRate  float64 // probability a fill's price is displaced
	SpikeTicks int64   // displacement magnitude in ticks
	BurstRate  float64 // probability a fill is followed by duplicates
	BurstSize  int     // duplicates appended per burst
}

// Validate ensures the config is within supported ranges.
func (c AnomalyConfig) Validate() error {
	if c.SpikeRate < 0 || c.SpikeRate > 1 {
		return fmt.Errorf("spikeRate must be between 0 and 1")
	}
	if c.SpikeTicks < 0 {
		return fmt.Errorf("spikeTicks must be >= 0")
	}
	if c.BurstRate < 0 || c.BurstRate > 1 {
		return fmt.Errorf("burstRate must be between 0 and 1")
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("burstSize must be >= 1")
	}
	return nil
}

// Enabled reports whether any anomaly can fire.
func (c AnomalyConfig) Enabled() bool {
	return c.SpikeRate > 0 || c.BurstRate > 0
}

// Injector perturbs a fill stream. Duplicates from a burst re-fill the
// order past its quantity on purpose; downstream consumers are expected
// to absorb that, not the injector to avoid it.
type Injector struct {
	cfg AnomalyConfig
	rng *rand.Rand
}

// NewInjector creates an injector with validation.
func NewInjector(cfg AnomalyConfig) (*Injector, error) {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Injector{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Process applies anomalies to a single fill and returns the resulting
// fills. A spike displaces the price by SpikeTicks in a random
// direction; a burst appends BurstSize copies after the original.
func (inj *Injector) Process(fill schema.Fill) []schema.Fill {
	if inj == nil {
		return []schema.Fill{fill}
	}
	if inj.cfg.SpikeRate > 0 && inj.cfg.SpikeTicks > 0 && inj.rng.Float64() < inj.cfg.SpikeRate {
		if inj.rng.Intn(2) == 0 {
			fill.Price += schema.Price(inj.cfg.SpikeTicks)
		} else {
			fill.Price -= schema.Price(inj.cfg.SpikeTicks)
		}
		if fill.Price < 1 {
			fill.Price = 1
		}
	}
	out := []schema.Fill{fill}
	if inj.cfg.BurstRate > 0 && inj.rng.Float64() < inj.cfg.BurstRate {
		for i := 0; i < inj.cfg.BurstSize; i++ {
			out = append(out, fill)
		}
	}
	return out
}
