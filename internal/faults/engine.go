// Package faults degrades a journal stream to drill the recovery path.
// The rules mirror what operation produces: a torn tail drops records,
// a retried append duplicates them, and a slow consumer shifts receive
// timestamps. Recovery and replay are expected to absorb all of it.
package faults

import (
	"fmt"
	"math/rand"
	"time"

	"riskcore/internal/bus"
)

// Config controls the degradation rules.
type Config struct {
	Seed          int64
	DropRate      float64       // probability a record is removed
	DuplicateRate float64       // probability a record is emitted twice
	ReorderWindow int           // records buffered and released in random order
	MaxRecvDelay  time.Duration // upper bound added to receive timestamps
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return fmt.Errorf("reorderWindow must be >= 1")
	}
	if c.MaxRecvDelay < 0 {
		return fmt.Errorf("maxRecvDelay must be >= 0")
	}
	return nil
}

// Stats counts the degradations applied so far.
type Stats struct {
	In         int
	Out        int
	Dropped    int
	Duplicated int
	Delayed    int
}

// Engine applies the configured rules to an event stream. A fixed Seed
// yields an identical degradation across runs.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []bus.Event
	stats   Stats
}

// NewEngine creates an engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Process runs one event through the rules and returns what survives.
// With a reorder window above one, output lags input until the window
// fills; Flush drains the remainder.
func (e *Engine) Process(ev bus.Event) []bus.Event {
	e.stats.In++
	if e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate {
		e.stats.Dropped++
		return nil
	}
	ev = e.delay(ev)
	if e.cfg.ReorderWindow <= 1 {
		return e.emit(ev)
	}
	e.pending = append(e.pending, ev)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.emit(e.takePending())
}

// Flush drains the reorder buffer after the input ends.
func (e *Engine) Flush() []bus.Event {
	var out []bus.Event
	for len(e.pending) > 0 {
		out = append(out, e.emit(e.takePending())...)
	}
	return out
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) takePending() bus.Event {
	idx := e.rng.Intn(len(e.pending))
	ev := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return ev
}

func (e *Engine) emit(ev bus.Event) []bus.Event {
	out := []bus.Event{ev}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, ev)
		e.stats.Duplicated++
	}
	e.stats.Out += len(out)
	return out
}

// delay pushes the receive timestamp forward by a random amount within
// the bound. Event timestamps stay put; only the observation moves.
func (e *Engine) delay(ev bus.Event) bus.Event {
	if e.cfg.MaxRecvDelay <= 0 {
		return ev
	}
	d := e.rng.Int63n(e.cfg.MaxRecvDelay.Nanoseconds() + 1)
	if d == 0 {
		return ev
	}
	ev.Header.TsRecv += d
	e.stats.Delayed++
	return ev
}
