// Copyright Project GoHPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/numeric"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	numbPtr := flag.Int("n", 100_000_000, "Number of Trials")
	workers := flag.Int("workers", 0, "Worker goroutines (default from config)")
	chunk := flag.Int("chunk", 0, "Samples per unit of work (0 spreads evenly)")
	seed := flag.Uint64("seed", 0, "Random seed (default from config)")
	mode := flag.String("mode", "mw", "Execution mode: seq, pool or mw")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Loading configuration: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *chunk > 0 {
		cfg.ChunkSize = *chunk
	}
	if *seed > 0 {
		cfg.Seed = *seed
	}
	if err := cfg.SetupLogging(); err != nil {
		logrus.Fatalf("Configuring logging: %v", err)
	}

	nTests := *numbPtr
	logrus.Info("Starting Monte Carlo π approximation")
	logrus.WithFields(logrus.Fields{
		"trials":     nTests,
		"workers":    cfg.Workers,
		"chunk_size": cfg.ChunkSize,
		"seed":       cfg.Seed,
		"mode":       *mode,
	}).Info("Run configured")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := numeric.Params{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize}
	start := time.Now()
	var est numeric.Estimate
	switch *mode {
	case "seq":
		est, err = numeric.EstimateSequential(numeric.UnitDisk, nTests, cfg.Seed)
	case "pool":
		est, err = numeric.EstimatePool(ctx, numeric.UnitDisk, nTests, cfg.Seed, p)
	case "mw":
		est, err = numeric.EstimateMW(ctx, numeric.UnitDisk, nTests, cfg.Seed, p)
	default:
		logrus.Fatalf("Unknown mode %q", *mode)
	}
	if err != nil {
		logrus.Fatalf("Estimation failed: %v", err)
	}
	elapsed := time.Since(start)

	logrus.WithFields(logrus.Fields{
		"pi_approximation": est.Pi,
		"points_in_circle": est.Inside,
		"error":            math.Abs(est.Pi - math.Pi),
		"duration":         elapsed,
		"points_per_sec":   float64(nTests) / elapsed.Seconds(),
	}).Info("Computation completed")

	logrus.Infof("π ≈ %0.8f (error: %0.8f, computed in %s)",
		est.Pi, math.Abs(est.Pi-math.Pi), elapsed)
}
