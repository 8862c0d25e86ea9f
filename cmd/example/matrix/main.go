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
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/numeric"
)

func randomMatrix(rng *rand.Rand, rows, cols int) numeric.Matrix {
	m := numeric.NewMatrix(rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = rng.Int64N(100)
		}
	}
	return m
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	rows := flag.Int("m", 512, "Rows of the left operand")
	common := flag.Int("k", 512, "Columns of the left operand / rows of the right operand")
	cols := flag.Int("cols", 512, "Columns of the right operand")
	workers := flag.Int("workers", 0, "Worker goroutines (default from config)")
	chunk := flag.Int("chunk", 0, "Result rows per unit of work (0 spreads evenly)")
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

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	a := randomMatrix(rng, *rows, *common)
	b := randomMatrix(rng, *common, *cols)
	logrus.WithFields(logrus.Fields{
		"left":    []int{*rows, *common},
		"right":   []int{*common, *cols},
		"workers": cfg.Workers,
	}).Info("Multiplying random matrices")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	p := numeric.Params{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize}

	timed := func(name string, fn func() (numeric.Matrix, error)) numeric.Matrix {
		start := time.Now()
		out, err := fn()
		if err != nil {
			logrus.Fatalf("%s multiplication failed: %v", name, err)
		}
		logrus.WithFields(logrus.Fields{
			"mode":     name,
			"duration": time.Since(start),
		}).Info("Multiplication completed")
		return out
	}

	seq := timed("seq", func() (numeric.Matrix, error) { return numeric.MultiplySequential(a, b) })
	pooled := timed("pool", func() (numeric.Matrix, error) { return numeric.MultiplyPool(ctx, a, b, p) })
	mw := timed("mw", func() (numeric.Matrix, error) { return numeric.MultiplyMW(ctx, a, b, p) })

	if !seq.Equal(pooled) || !seq.Equal(mw) {
		logrus.Fatal("Parallel results differ from the sequential product")
	}
	logrus.Info("All three products agree")
}
