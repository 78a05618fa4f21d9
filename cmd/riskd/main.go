package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"riskcore/internal/admin"
	"riskcore/internal/bus"
	"riskcore/internal/fillgen"
	"riskcore/internal/obs"
	"riskcore/internal/ops"
	"riskcore/internal/recorder"
	"riskcore/internal/risk"
	"riskcore/internal/schema"
	"riskcore/internal/state"
	"riskcore/internal/store"
)

const (
	defaultEnvFile = ".env"

	// pgDSNEnv names the connection string for the limits override store.
	pgDSNEnv = "RISKD_PG_DSN"
)

type runtimeConfig struct {
	v atomic.Value
}

func newRuntimeConfig(loaded ops.Loaded) *runtimeConfig {
	var rc runtimeConfig
	rc.v.Store(loaded)
	return &rc
}

func (r *runtimeConfig) Load() ops.Loaded {
	return r.v.Load().(ops.Loaded)
}

func (r *runtimeConfig) Update(loaded ops.Loaded) {
	r.v.Store(loaded)
}

type daemonOptions struct {
	walDir        string
	orderCount    int
	orderInterval time.Duration
	snapshotPath  string
	recoverCfg    *state.RecoverConfig
	metricsAddr   string
	adminSocket   string
	pyroscopeAddr string
	injector      *fillgen.Injector
}

func main() {
	walDir := flag.String("wal-dir", "testdata/wal", "Journal directory")
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	configReload := flag.Duration("config-reload-interval", 2*time.Second, "Config reload interval (0=disable)")
	envFile := flag.String("env-file", defaultEnvFile, "Environment file to load ("+pgDSNEnv+" enables the limits store)")
	orderCount := flag.Int("order-count", 0, "Number of orders to run through the gate (0=until shutdown)")
	orderInterval := flag.Duration("order-interval", 100*time.Millisecond, "Delay between orders (0=no pacing)")
	snapshotPath := flag.String("snapshot-path", "", "State snapshot output (default: <wal-dir>/positions.json)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address (empty=disable)")
	adminSocket := flag.String("admin-socket", "", "Admin unix socket path (empty=disable)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")

	recoverEnabled := flag.Bool("recover", false, "Recover state from snapshot + journal before serving")
	recoverSnapshot := flag.String("recover-snapshot", "", "Snapshot path for recovery (default: <wal-dir>/positions.json)")
	recoverPrefix := flag.String("recover-prefix", "", "Journal file prefix for recovery (default: risk)")
	recoverNoChecksum := flag.Bool("recover-no-checksum", false, "Disable checksum validation for recovery")
	recoverMaxPayload := flag.Int("recover-max-payload", 0, "Max payload size in bytes for recovery (0=unlimited)")

	replayDir := flag.String("replay-dir", "", "Journal directory for replay mode")
	replayPrefix := flag.String("replay-prefix", "", "Journal file prefix (default: risk)")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	replayUseRecv := flag.Bool("replay-use-recv-time", false, "Use receive timestamp for pacing")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")
	replayMaxPayload := flag.Int("replay-max-payload", 0, "Max payload size in bytes (0=unlimited)")
	replaySnapshot := flag.String("replay-snapshot", "", "Snapshot path for replay verification (default: <replay-dir>/positions.json)")
	replayVerifySnapshot := flag.Bool("replay-verify-snapshot", true, "Verify rebuilt state against snapshot after replay")

	spikeRate := flag.Float64("spike-rate", 0, "Probability a fill price is displaced by spike-ticks")
	spikeTicks := flag.Int64("spike-ticks", 0, "Fill price displacement in ticks")
	burstRate := flag.Float64("burst-rate", 0, "Probability a fill is followed by duplicates")
	burstSize := flag.Int("burst-size", 0, "Duplicates appended per burst")
	anomalySeed := flag.Int64("anomaly-seed", 0, "Anomaly RNG seed (0=wall clock)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *replayDir != "" {
		cfg := recorder.PlaybackConfig{
			Dir:             *replayDir,
			FilePrefix:      *replayPrefix,
			Speed:           *replaySpeed,
			UseRecvTime:     *replayUseRecv,
			DisableChecksum: *replayNoChecksum,
			MaxPayloadSize:  *replayMaxPayload,
		}
		snapshotIn := resolveSnapshotPath(*replayDir, *replaySnapshot)
		if err := runReplay(ctx, cfg, snapshotIn, *replayVerifySnapshot); err != nil {
			logs.Errorf("replay failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := loadEnv(*envFile); err != nil {
		logs.Errorf("env: %v", err)
		os.Exit(1)
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		logs.Errorf("config load failed: %v", err)
		os.Exit(1)
	}

	var overrideRows []store.AccountLimits
	if dsn := os.Getenv(pgDSNEnv); dsn != "" {
		rows, err := loadStoreOverrides(ctx, dsn)
		if err != nil {
			logs.Errorf("limits store: %v", err)
			os.Exit(1)
		}
		overrideRows = rows
		mergeOverrideRows(&loaded, overrideRows)
	}

	runtime := newRuntimeConfig(loaded)
	if *configPath != "" && *configReload > 0 {
		go watchConfig(ctx, *configPath, *configReload, func(next ops.Loaded) {
			mergeOverrideRows(&next, overrideRows)
			runtime.Update(next)
		})
	}

	var injector *fillgen.Injector
	anomaly := fillgen.AnomalyConfig{
		Seed:       *anomalySeed,
		SpikeRate:  *spikeRate,
		SpikeTicks: *spikeTicks,
		BurstRate:  *burstRate,
		BurstSize:  *burstSize,
	}
	if anomaly.Enabled() {
		injector, err = fillgen.NewInjector(anomaly)
		if err != nil {
			logs.Errorf("anomaly config: %v", err)
			os.Exit(1)
		}
		logs.Infof("anomaly injection armed: spike=%.3f/%d burst=%.3f/%d",
			anomaly.SpikeRate, anomaly.SpikeTicks, anomaly.BurstRate, anomaly.BurstSize)
	}

	var recoverCfg *state.RecoverConfig
	if *recoverEnabled {
		recoverCfg = &state.RecoverConfig{
			JournalDir:      *walDir,
			SnapshotPath:    resolveSnapshotPath(*walDir, *recoverSnapshot),
			FilePrefix:      *recoverPrefix,
			DisableChecksum: *recoverNoChecksum,
			MaxPayloadSize:  *recoverMaxPayload,
		}
	}

	opts := daemonOptions{
		walDir:        *walDir,
		orderCount:    *orderCount,
		orderInterval: *orderInterval,
		snapshotPath:  resolveSnapshotPath(*walDir, *snapshotPath),
		recoverCfg:    recoverCfg,
		metricsAddr:   *metricsAddr,
		adminSocket:   *adminSocket,
		pyroscopeAddr: *pyroscopeAddr,
		injector:      injector,
	}
	if err := runDaemon(ctx, runtime, opts); err != nil {
		logs.Errorf("riskd: %v", err)
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, runtime *runtimeConfig, opts daemonOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "riskd",
			ServerAddress:   opts.pyroscopeAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("pyroscope start: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
		logs.Infof("profiler attached: %s", opts.pyroscopeAddr)
	}

	loaded := runtime.Load()
	queue := bus.NewQueue(4096)
	p := newPipeline(loaded, queue, opts.injector)

	if opts.recoverCfg != nil {
		result, err := state.Recover(ctx, *opts.recoverCfg)
		if err != nil {
			return err
		}
		p.restore(result)
		logs.Infof("recovered positions=%d last_seq=%d", result.Book.Count(), result.LastSeq)
	}

	var gen *fillgen.Generator
	if loaded.Flow.Enabled() {
		g, err := fillgen.NewGenerator(loaded.Registry, fillgen.Config{
			AccountID:    loaded.Flow.AccountID,
			InstrumentID: loaded.Flow.InstrumentID,
			BasePrice:    loaded.Flow.BasePrice,
			Qty:          loaded.Flow.Qty,
			Seed:         loaded.Flow.Seed,
			DriftTicks:   loaded.Flow.DriftTicks,
			JitterTicks:  loaded.Flow.JitterTicks,
		})
		if err != nil {
			return err
		}
		gen = g
	}

	var adminSrv *admin.Server
	if opts.adminSocket != "" {
		srv, err := admin.NewServer(opts.adminSocket, p)
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return err
		}
		adminSrv = srv
		logs.Infof("admin listening: %s", opts.adminSocket)
	}

	if opts.metricsAddr != "" {
		metricsSrv := obs.Serve(opts.metricsAddr)
		defer func() {
			_ = metricsSrv.Close()
		}()
		logs.Infof("metrics listening: %s", opts.metricsAddr)
	}

	w, err := recorder.NewWriter(recorder.DefaultConfig(opts.walDir))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			if err := w.TryAppend(e.Header, e.Payload); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		})
	}()

	if gen != nil {
		runFlow(ctx, p, gen, runtime, opts.orderCount, opts.orderInterval)
	} else {
		logs.Info("no flow configured, serving admin and metrics until shutdown")
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
		case <-ctx.Done():
		}
	}

	queue.Close()
	wg.Wait()
	var appendErr error
	select {
	case appendErr = <-errCh:
	default:
	}

	cancel()
	if adminSrv != nil {
		_ = adminSrv.Close()
	}

	if err := w.Close(); err != nil {
		return err
	}
	if appendErr != nil {
		return appendErr
	}

	if opts.snapshotPath != "" {
		snapshot := p.snapshot()
		if err := state.WriteSnapshot(opts.snapshotPath, snapshot); err != nil {
			return err
		}
		logs.Infof("snapshot written: %s positions=%d last_seq=%d",
			opts.snapshotPath, len(snapshot.Positions), snapshot.LastSeq)
	}
	p.logSummary()
	return nil
}

// runFlow drives synthetic orders through the pipeline until the count is
// reached or a shutdown arrives. Config changes are picked up between
// orders.
func runFlow(ctx context.Context, p *pipeline, gen *fillgen.Generator, runtime *runtimeConfig, count int, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	generated := 0
	for count <= 0 || generated < count {
		if tick != nil {
			select {
			case <-sys.Shutdown():
				logs.Info("shutdown signal received")
				return
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else {
			select {
			case <-sys.Shutdown():
				logs.Info("shutdown signal received")
				return
			case <-ctx.Done():
				return
			default:
			}
		}

		loaded := runtime.Load()
		p.applyConfig(loaded)
		if !loaded.Features.EnableOrderFlow {
			if tick == nil {
				// unpaced loop, don't spin while the flow gate is off
				time.Sleep(time.Millisecond)
			}
			continue
		}

		order := gen.Next()
		if err := p.handleOrder(order); err != nil {
			logs.Errorf("order %d: %v", order.OrderID, err)
			continue
		}
		generated++
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return defaultLoaded()
	}
	return ops.Load(path)
}

// defaultLoaded builds a single-account, single-instrument setup so the
// daemon runs end to end without a config file.
func defaultLoaded() (ops.Loaded, error) {
	reg := schema.NewRegistry()
	acctID, err := reg.AddAccount("sim")
	if err != nil {
		return ops.Loaded{}, err
	}
	scale := schema.ScaleSpec{
		PriceScale:    8,
		QuantityScale: 8,
		NotionalScale: 8,
		FeeScale:      8,
	}
	instID, err := reg.AddInstrument("TEST-PERP", scale)
	if err != nil {
		return ops.Loaded{}, err
	}
	return ops.Loaded{
		Version:   1,
		Registry:  reg,
		Limits:    risk.DefaultLimits(),
		Overrides: make(map[uint32]risk.Limits),
		Breakers: map[uint32]risk.BreakerConfig{
			uint32(instID): {
				MaxMove:           500,
				MaxFillsPerWindow: 100,
				WindowNs:          time.Second.Nanoseconds(),
			},
		},
		Margin: risk.DefaultMarginParams(),
		Equity: 10_000_000,
		Flow: ops.FlowSpec{
			AccountID:    uint32(acctID),
			InstrumentID: uint32(instID),
			BasePrice:    10_000,
			Qty:          10,
			Seed:         1,
			JitterTicks:  5,
		},
		Features: ops.FeatureFlags{
			EnableOrderFlow:   true,
			EnableFills:       true,
			EnableMarginWatch: true,
		},
	}, nil
}

func resolveSnapshotPath(dir string, path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(dir, "positions.json")
}

// loadEnv loads the env file. The default file may be absent; a file the
// operator named must exist.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) && path == defaultEnvFile {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadStoreOverrides(ctx context.Context, dsn string) ([]store.AccountLimits, error) {
	st, err := store.Open(store.Option{ConnString: dsn})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = st.Close()
	}()
	rows, err := st.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	logs.Infof("limits store: %d account overrides loaded", len(rows))
	return rows, nil
}

// mergeOverrideRows applies store rows over the file config overrides.
// Store rows win; rows naming accounts outside the registry are logged
// and skipped.
func mergeOverrideRows(loaded *ops.Loaded, rows []store.AccountLimits) {
	if len(rows) == 0 {
		return
	}
	if loaded.Overrides == nil {
		loaded.Overrides = make(map[uint32]risk.Limits, len(rows))
	}
	for _, name := range store.MergeOverrides(loaded.Registry, rows, loaded.Overrides) {
		logs.Errorf("limits store row for unknown account %q ignored", name)
	}
}

func watchConfig(ctx context.Context, path string, interval time.Duration, update func(ops.Loaded)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				logs.Errorf("config stat failed: %v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			loaded, err := ops.Load(path)
			if err != nil {
				logs.Errorf("config reload failed: %v", err)
				continue
			}
			update(loaded)
			lastMod = info.ModTime()
			logs.Infof("config reloaded: %s", path)
		}
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
