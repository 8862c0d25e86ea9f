package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/metrics"
	"github.com/qcserestipy/gohpc/pkg/serve"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	serveOnly := flag.Bool("serve", false, "Only run the server, skip the demo client")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Loading configuration: %v", err)
	}
	if err := cfg.SetupLogging(); err != nil {
		logrus.Fatalf("Configuring logging: %v", err)
	}

	server := serve.New(cfg, metrics.DefaultRegistry, logrus.StandardLogger())
	logrus.Infof("System: %d workers per computation", server.NumWorkers)

	errc := make(chan error, 1)
	go func() {
		errc <- serve.Launch(server, cfg.Server.Port)
	}()
	if *serveOnly {
		logrus.Fatal(<-errc)
	}

	base := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	// Wait for server to listen
	for {
		resp, err := http.Get(base + "/")
		if err == nil {
			resp.Body.Close()
			break
		}
		select {
		case err := <-errc:
			logrus.Fatal(err)
		case <-time.After(100 * time.Millisecond):
		}
	}

	var mc serve.MonteCarloResponse
	call(base+"/montecarlo", serve.MonteCarloRequest{Samples: 10_000_000, Seed: cfg.Seed}, &mc)
	logrus.WithFields(logrus.Fields{
		"job":    mc.Job,
		"inside": mc.Estimate.Inside,
	}).Infof("Client: π ≈ %0.8f", mc.Estimate.Pi)

	var mm serve.MatrixResponse
	call(base+"/matrix", serve.MatrixRequest{
		A: [][]int64{{1, 2}, {3, 4}},
		B: [][]int64{{5, 6}, {7, 8}},
	}, &mm)
	logrus.WithField("job", mm.Job).Infof("Client: product = %v", mm.Result)

	var in serve.IntegrateResponse
	call(base+"/integrate", serve.IntegrateRequest{Expr: "x*(x-1)", A: 0, B: 1, H: 1e-5}, &in)
	logrus.WithField("job", in.Job).Infof("Client: ∫ x(x-1) dx over [0,1] ≈ %0.8f", in.Value)
}

// call POSTs req as JSON to url and decodes the response into out.
func call(url string, req, out any) {
	buf, err := json.Marshal(req)
	if err != nil {
		logrus.Fatalf("Encoding request for %s: %v", url, err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(buf))
	if err != nil {
		logrus.Fatalf("Client POST to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Fatalf("Reading response failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		logrus.Fatalf("%s returned %s: %s", url, resp.Status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		logrus.Fatalf("Invalid JSON response: %v\n%s", err, string(body))
	}
}
