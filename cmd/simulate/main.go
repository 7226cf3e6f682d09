// Package main runs one scenario through an in-process session registry and
// prints the event feed and the finalized result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fieldops/internal/bootstrap"
	"github.com/cory-johannsen/fieldops/internal/config"
	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/registry"
	"github.com/cory-johannsen/fieldops/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (empty = defaults)")
	scenarioPath := flag.String("scenario", "content/scenarios/river-crossing.yaml", "path to scenario YAML")
	seed := flag.Int64("seed", 0, "random seed (0 = config value)")
	fast := flag.Bool("fast", true, "run ticks back to back instead of on the wall clock")
	report := flag.Bool("report", false, "print the detailed report as JSON after the feed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.Combat.Seed = *seed
	}
	if *fast {
		// A tiny tick keeps cadence semantics while finishing in moments.
		cfg.Combat.TickMin = time.Millisecond
		cfg.Combat.TickMax = time.Millisecond
		cfg.Combat.TickStep = 0
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	sc, err := bootstrap.LoadScenario(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	defer store.Close()

	reg, err := bootstrap.NewRegistry(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("building session registry", zap.Error(err))
	}
	defer reg.Close()

	if res := reg.Result(sc.MissionID); res != nil {
		fmt.Printf("mission %s already finalized (victory=%v)\n", sc.MissionID, res.Victory)
		return
	}

	var printed int64
	done := make(chan struct{})
	reg.OnUpdate(sc.MissionID, func(s *combat.Session) {
		for _, ev := range s.Events {
			if ev.Seq <= printed {
				continue
			}
			printed = ev.Seq
			fmt.Printf("[round %3d] %s\n", ev.Round, ev.Description)
		}
	})
	reg.OnComplete(sc.MissionID, func(bool, time.Duration) { close(done) })

	if !reg.Start(sc.MissionID, sc.Participants, sc.Enemies, sc.Context) {
		logger.Fatal("session did not start", zap.String("mission_id", sc.MissionID))
	}
	<-done

	res := reg.Result(sc.MissionID)
	fmt.Printf("\n%s after %d rounds (%s simulated)\n", outcome(res), res.Rounds, res.ActualDuration)
	for id, hp := range res.FinalHealths {
		fmt.Printf("  %-16s %d\n", id, hp)
	}
	if *report {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(registry.Summarize(res)); err != nil {
			logger.Error("encoding report", zap.Error(err))
		}
	}
	logger.Info("simulation finished",
		zap.String("mission_id", sc.MissionID),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func outcome(res *combat.Result) string {
	switch {
	case res.Status == combat.ForcedEnd:
		return "ABORTED"
	case res.Victory:
		return "VICTORY"
	default:
		return "DEFEAT"
	}
}
