// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package metrics

import (
	"fmt"
	"net"
	"net/http"

	"github.com/blinklabs-io/retarget/internal/config"
	"github.com/blinklabs-io/retarget/internal/logging"
	"github.com/blinklabs-io/retarget/pow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "retarget"

var (
	computationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Number of required target computations by algorithm",
		},
		[]string{"algorithm"},
	)

	powChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pow_checks_total",
			Help:      "Number of proof-of-work checks by result",
		},
		[]string{"result"}, // pass, fail
	)

	badBitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bad_bits_total",
		Help:      "Number of headers whose bits differ from the required bits",
	})

	tipHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tip_height",
		Help:      "Height of the last validated header",
	})

	tipDifficulty = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tip_difficulty",
		Help:      "Difficulty of the last validated header",
	})
)

func init() {
	prometheus.MustRegister(
		computationsTotal,
		powChecksTotal,
		badBitsTotal,
		tipHeight,
		tipDifficulty,
	)
}

// RecordComputation counts a required target computation
func RecordComputation(algorithm pow.Algorithm) {
	computationsTotal.WithLabelValues(algorithm.String()).Inc()
}

// RecordPoWCheck counts a proof-of-work check
func RecordPoWCheck(passed bool) {
	if passed {
		powChecksTotal.WithLabelValues("pass").Inc()
	} else {
		powChecksTotal.WithLabelValues("fail").Inc()
	}
}

func RecordBadBits() {
	badBitsTotal.Inc()
}

// SetTip updates the tip gauges
func SetTip(height int64, bits uint32) {
	tipHeight.Set(float64(height))
	tipDifficulty.Set(pow.GetDifficulty(bits))
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Start serves the metrics endpoint on the configured listener. A zero
// port disables it.
func Start() error {
	cfg := config.GetConfig()
	if cfg.Metrics.ListenPort == 0 {
		return nil
	}
	logger := logging.GetLogger()
	listenAddr := fmt.Sprintf(
		"%s:%d",
		cfg.Metrics.ListenAddress,
		cfg.Metrics.ListenPort,
	)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}
	logger.Infof("starting metrics listener on %s", listenAddr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go func() {
		// Serve only returns on a listener error
		if err := http.Serve(listener, mux); err != nil {
			logger.Errorf("metrics listener failed: %s", err)
		}
	}()
	return nil
}
