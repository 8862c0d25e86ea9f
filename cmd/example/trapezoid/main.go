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
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/expr"
	"github.com/qcserestipy/gohpc/pkg/numeric"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	source := flag.String("f", "x*(x-1)", "Integrand as a JavaScript expression in x")
	lower := flag.Float64("a", 0, "Lower bound")
	upper := flag.Float64("b", 1, "Upper bound")
	step := flag.Float64("h", 1e-6, "Step size")
	workers := flag.Int("workers", 0, "Worker goroutines (default from config)")
	chunk := flag.Int("chunk", 0, "Interior samples per unit of work (0 spreads evenly)")
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
	if err := cfg.SetupLogging(); err != nil {
		logrus.Fatalf("Configuring logging: %v", err)
	}

	f, err := expr.Compile(*source)
	if err != nil {
		logrus.Fatalf("Compiling integrand: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"f":       f.String(),
		"a":       *lower,
		"b":       *upper,
		"h":       *step,
		"workers": cfg.Workers,
		"mode":    *mode,
	}).Info("Starting trapezoid integration")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	p := numeric.Params{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize}
	start := time.Now()

	var value float64
	switch *mode {
	case "seq":
		value, err = numeric.IntegrateSequential(f.Fn(), *lower, *upper, *step)
	case "pool":
		value, err = numeric.IntegratePool(ctx, f.Fn(), *lower, *upper, *step, p)
	case "mw":
		value, err = numeric.IntegrateMW(ctx, f.Fn(), *lower, *upper, *step, p)
	default:
		logrus.Fatalf("Unknown mode %q", *mode)
	}
	if err != nil {
		logrus.Fatalf("Integration failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"value":    value,
		"duration": time.Since(start),
	}).Info("Computation completed")
}
