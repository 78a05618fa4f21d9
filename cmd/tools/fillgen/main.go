package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"riskcore/internal/bus"
	"riskcore/internal/codec"
	"riskcore/internal/fillgen"
	"riskcore/internal/obs"
	"riskcore/internal/ops"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
)

// fillgen writes a synthetic order and fill journal. The output serves as
// a replay fixture and as soak input for the recovery path; the anomaly
// flags bend the fill stream to produce breaker-worthy journals.
func main() {
	walDir := flag.String("wal-dir", "testdata/wal", "Journal directory")
	configPath := flag.String("config", "", "Path to YAML config")
	orders := flag.Int("orders", 100, "Number of orders to generate")
	interval := flag.Duration("interval", 0, "Delay between orders")
	account := flag.String("account", "sim", "Account name")
	instrument := flag.String("instrument", "", "Instrument name (default: all)")
	basePrice := flag.Int64("base-price", 10_000, "Base price in ticks")
	qty := flag.Int64("qty", 10, "Order quantity in lots")
	seed := flag.Uint64("seed", 1, "Order stream seed (0=time-based)")
	drift := flag.Int64("drift", 0, "Price drift in ticks per order")
	jitter := flag.Int64("jitter", 5, "Price jitter bound in ticks")
	source := flag.Uint("source", 2, "Source ID stamped on headers")
	spikeRate := flag.Float64("spike-rate", 0, "Probability a fill price is displaced")
	spikeTicks := flag.Int64("spike-ticks", 0, "Fill price displacement in ticks")
	burstRate := flag.Float64("burst-rate", 0, "Probability a fill is duplicated")
	burstSize := flag.Int("burst-size", 3, "Duplicates appended per burst")
	anomalySeed := flag.Int64("anomaly-seed", 0, "Anomaly seed (0=time-based)")
	flag.Parse()

	if *orders <= 0 {
		log.Fatalf("orders must be > 0")
	}

	registry, err := loadRegistry(*configPath)
	if err != nil {
		log.Fatalf("registry load failed: %v", err)
	}
	accountID, instrumentID, err := resolveFlow(registry, *account, *instrument)
	if err != nil {
		log.Fatalf("flow resolve failed: %v", err)
	}

	generator, err := fillgen.NewGenerator(registry, fillgen.Config{
		AccountID:    accountID,
		InstrumentID: instrumentID,
		BasePrice:    schema.Price(*basePrice),
		Qty:          schema.Quantity(*qty),
		Seed:         *seed,
		DriftTicks:   *drift,
		JitterTicks:  *jitter,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
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
			log.Fatalf("injector init failed: %v", err)
		}
	}

	ctx := context.Background()
	writer, err := recorder.NewWriter(recorder.DefaultConfig(*walDir))
	if err != nil {
		log.Fatalf("journal init failed: %v", err)
	}
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("journal start failed: %v", err)
	}

	queue := bus.NewQueue(1024)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	traceGen := obs.NewTraceGenerator(0)

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			if err := writer.TryAppend(e.Header, e.Payload); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		})
	}()

	seq := uint64(0)
	fills := 0
	for i := 0; i < *orders; i++ {
		order := generator.Next()
		traceID := traceGen.Next()
		if err := publish(queue, &seq, uint16(*source), traceID,
			schema.EventOrder, codec.EncodeOrder(nil, order)); err != nil {
			log.Fatalf("publish failed: %v", err)
		}
		for _, fill := range injector.Process(fillgen.FillFor(order)) {
			if err := publish(queue, &seq, uint16(*source), traceID,
				schema.EventFill, codec.EncodeFill(nil, fill)); err != nil {
				log.Fatalf("publish failed: %v", err)
			}
			fills++
		}
		if *interval > 0 && i < *orders-1 {
			time.Sleep(*interval)
		}
	}

	queue.Close()
	wg.Wait()

	var appendErr error
	select {
	case appendErr = <-errCh:
	default:
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("journal close failed: %v", err)
	}
	if appendErr != nil {
		log.Fatalf("journal append failed: %v", appendErr)
	}
	log.Printf("journal written: dir=%s orders=%d fills=%d events=%d", *walDir, *orders, fills, seq)
}

func publish(queue *bus.Queue, seq *uint64, source uint16, traceID uint64, eventType schema.EventType, payload []byte) error {
	*seq++
	now := time.Now().UTC().UnixNano()
	header := schema.NewHeader(eventType, source, *seq, now, now)
	header.TraceID = traceID
	return queue.TryPublish(bus.Event{Header: header, Payload: payload})
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return defaultRegistry()
	}
	return ops.LoadRegistry(path)
}

func defaultRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if _, err := reg.AddAccount("sim"); err != nil {
		return nil, err
	}
	scale := schema.ScaleSpec{
		PriceScale:    8,
		QuantityScale: 8,
		NotionalScale: 8,
		FeeScale:      8,
	}
	if _, err := reg.AddInstrument("TEST-PERP", scale); err != nil {
		return nil, err
	}
	return reg, nil
}

func resolveFlow(reg *schema.Registry, account, instrument string) (uint32, uint32, error) {
	accountID, ok := reg.AccountIDByName(account)
	if !ok {
		return 0, 0, fmt.Errorf("account not in registry: %s", account)
	}
	var instrumentID schema.InstrumentID
	if instrument != "" {
		instrumentID, ok = reg.InstrumentIDByName(instrument)
		if !ok {
			return 0, 0, fmt.Errorf("instrument not in registry: %s", instrument)
		}
	}
	return uint32(accountID), uint32(instrumentID), nil
}
