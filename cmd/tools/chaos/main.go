package main

import (
	"context"
	"flag"
	"log"

	"riskcore/internal/bus"
	"riskcore/internal/faults"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
)

// chaos copies a journal through the fault engine. Sequence numbers and
// event timestamps pass through untouched so the output looks like the
// same run gone wrong: dropped records leave gaps, duplicated records
// repeat their sequence, and delays only move receive timestamps.
func main() {
	inputDir := flag.String("input-dir", "testdata/wal", "Input journal directory")
	inputPrefix := flag.String("input-prefix", "", "Input file prefix (default: risk)")
	outputDir := flag.String("output-dir", "testdata/wal_chaos", "Output journal directory")
	outputPrefix := flag.String("output-prefix", "chaos", "Output file prefix")
	seed := flag.Int64("seed", 0, "RNG seed (0=time-based)")
	dropRate := flag.Float64("drop-rate", 0, "Drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "Duplicate probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "Reorder window (>=1)")
	maxDelay := flag.Duration("max-delay", 0, "Max receive delay")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	flag.Parse()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *inputDir,
		FilePrefix:      *inputPrefix,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	engine, err := faults.NewEngine(faults.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorderWindow,
		MaxRecvDelay:  *maxDelay,
	})
	if err != nil {
		log.Fatalf("fault config invalid: %v", err)
	}

	outCfg := recorder.DefaultConfig(*outputDir)
	outCfg.FilePrefix = *outputPrefix
	outCfg.CopyPayload = true
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		ev := bus.Event{Header: header, Payload: copyPayload(payload)}
		return appendEvents(writer, engine.Process(ev))
	})
	if err == nil {
		err = appendEvents(writer, engine.Flush())
	}
	if err != nil {
		log.Fatalf("degrade failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}

	stats := engine.Stats()
	log.Printf("journal degraded: dir=%s in=%d out=%d dropped=%d duplicated=%d delayed=%d",
		*outputDir, stats.In, stats.Out, stats.Dropped, stats.Duplicated, stats.Delayed)
}

func appendEvents(writer *recorder.Writer, events []bus.Event) error {
	for _, ev := range events {
		if err := writer.TryAppend(ev.Header, ev.Payload); err != nil {
			return err
		}
	}
	return nil
}

func copyPayload(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp
}
