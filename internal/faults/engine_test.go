package faults

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskcore/internal/bus"
	"riskcore/internal/schema"
)

func testEvent(seq uint64) bus.Event {
	ts := int64(1_700_000_000_000_000_000) + int64(seq)
	return bus.Event{Header: schema.NewHeader(schema.EventFill, 1, seq, ts, ts)}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{ReorderWindow: 1}.Validate())
	assert.Error(t, Config{DropRate: 1.5, ReorderWindow: 1}.Validate())
	assert.Error(t, Config{DropRate: -0.1, ReorderWindow: 1}.Validate())
	assert.Error(t, Config{DuplicateRate: 2, ReorderWindow: 1}.Validate())
	assert.Error(t, Config{ReorderWindow: 0}.Validate())
	assert.Error(t, Config{ReorderWindow: 1, MaxRecvDelay: -time.Second}.Validate())
}

func TestEnginePassthrough(t *testing.T) {
	engine, err := NewEngine(Config{Seed: 7})
	require.NoError(t, err)

	for seq := uint64(1); seq <= 16; seq++ {
		in := testEvent(seq)
		out := engine.Process(in)
		require.Len(t, out, 1)
		assert.Equal(t, in, out[0])
	}
	assert.Empty(t, engine.Flush())

	stats := engine.Stats()
	assert.Equal(t, 16, stats.In)
	assert.Equal(t, 16, stats.Out)
	assert.Zero(t, stats.Dropped)
	assert.Zero(t, stats.Duplicated)
	assert.Zero(t, stats.Delayed)
}

func TestEngineDropAll(t *testing.T) {
	engine, err := NewEngine(Config{Seed: 7, DropRate: 1})
	require.NoError(t, err)

	for seq := uint64(1); seq <= 8; seq++ {
		assert.Empty(t, engine.Process(testEvent(seq)))
	}
	assert.Empty(t, engine.Flush())

	stats := engine.Stats()
	assert.Equal(t, 8, stats.In)
	assert.Equal(t, 8, stats.Dropped)
	assert.Zero(t, stats.Out)
}

func TestEngineDuplicateAll(t *testing.T) {
	engine, err := NewEngine(Config{Seed: 7, DuplicateRate: 1})
	require.NoError(t, err)

	in := testEvent(1)
	out := engine.Process(in)
	require.Len(t, out, 2)
	assert.Equal(t, in, out[0])
	assert.Equal(t, in, out[1])

	stats := engine.Stats()
	assert.Equal(t, 1, stats.Duplicated)
	assert.Equal(t, 2, stats.Out)
}

func TestEngineReorderKeepsEverySeq(t *testing.T) {
	engine, err := NewEngine(Config{Seed: 7, ReorderWindow: 4})
	require.NoError(t, err)

	var got []uint64
	for seq := uint64(1); seq <= 20; seq++ {
		for _, ev := range engine.Process(testEvent(seq)) {
			got = append(got, ev.Header.Seq)
		}
	}
	for _, ev := range engine.Flush() {
		got = append(got, ev.Header.Seq)
	}

	require.Len(t, got, 20)
	sorted := append([]uint64(nil), got...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, seq := range sorted {
		assert.Equal(t, uint64(i+1), seq)
	}
	assert.NotEqual(t, sorted, got, "window of 4 over 20 events left the order untouched")
}

func TestEngineRecvDelayBounds(t *testing.T) {
	maxDelay := 250 * time.Millisecond
	engine, err := NewEngine(Config{Seed: 7, MaxRecvDelay: maxDelay})
	require.NoError(t, err)

	for seq := uint64(1); seq <= 32; seq++ {
		in := testEvent(seq)
		out := engine.Process(in)
		require.Len(t, out, 1)
		assert.Equal(t, in.Header.TsEvent, out[0].Header.TsEvent)
		assert.GreaterOrEqual(t, out[0].Header.TsRecv, in.Header.TsRecv)
		assert.LessOrEqual(t, out[0].Header.TsRecv, in.Header.TsRecv+maxDelay.Nanoseconds())
	}
}

func TestEngineDeterministic(t *testing.T) {
	cfg := Config{Seed: 11, DropRate: 0.2, DuplicateRate: 0.3, ReorderWindow: 3, MaxRecvDelay: time.Millisecond}
	a, err := NewEngine(cfg)
	require.NoError(t, err)
	b, err := NewEngine(cfg)
	require.NoError(t, err)

	for seq := uint64(1); seq <= 64; seq++ {
		assert.Equal(t, a.Process(testEvent(seq)), b.Process(testEvent(seq)), "event %d diverged", seq)
	}
	assert.Equal(t, a.Flush(), b.Flush())
	assert.Equal(t, a.Stats(), b.Stats())
}

func TestNewEngineDefaultsWindow(t *testing.T) {
	engine, err := NewEngine(Config{Seed: 7, ReorderWindow: 0})
	require.NoError(t, err)
	out := engine.Process(testEvent(1))
	assert.Len(t, out, 1)
}
