// Command washsim runs a scripted wash on a simulated washing machine. It
// prints the appliance status while the cycle runs and serves Prometheus
// metrics until the cycle ends or the process is interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ahrav/go-washer/internal/logging"
)

func main() {
	var (
		configPath  = flag.String("config", envString("WASHSIM_CONFIG", ""), "Washer configuration file; the built-in defaults are used when empty")
		cycle       = flag.String("cycle", envString("WASHSIM_CYCLE", ""), "Cycle to run; the configured default when empty")
		timeFactor  = flag.Float64("time-factor", envFloat("WASHSIM_TIME_FACTOR", 0), "Simulation speed multiplier; the configured one when 0")
		metricsAddr = flag.String("metrics-addr", envString("WASHSIM_METRICS_ADDR", ":9090"), "Address serving /metrics; disabled when empty")
		statusEvery = flag.Duration("status-every", envDuration("WASHSIM_STATUS_EVERY", 5*time.Second), "Wall-clock interval between status lines")
		towels      = flag.Int("towels", envInt("WASHSIM_TOWELS", 3), "Number of dirty towels to load")
		socks       = flag.Int("socks", envInt("WASHSIM_SOCKS", 4), "Number of dirty socks to load")
		detergent   = flag.String("detergent", envString("WASHSIM_DETERGENT", "basic detergent"), "Additive poured into the detergent slot")
		dose        = flag.Float64("dose", envFloat("WASHSIM_DOSE", 0.05), "Liters of detergent to pour")
		preWash     = flag.Bool("prewash", envBool("WASHSIM_PREWASH", false), "Enable the pre-wash")
		logLevel    = flag.String("log-level", envString("WASHSIM_LOG_LEVEL", "default"), "Log verbosity: default, verbose, debug or trace")
		development = flag.Bool("dev", envBool("WASHSIM_DEV", false), "Use the human-readable development logger")
	)
	flag.Parse()

	logger, err := logging.NewLogger(*logLevel, *development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigPath:  *configPath,
		Cycle:       *cycle,
		TimeFactor:  *timeFactor,
		MetricsAddr: *metricsAddr,
		StatusEvery: *statusEvery,
		Towels:      *towels,
		Socks:       *socks,
		Detergent:   *detergent,
		Dose:        *dose,
		PreWash:     *preWash,
		Log:         logger,
	}
	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("Wash failed: %v", err)
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("Invalid %s=%q: %v", key, v, err)
	}
	return f
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid %s=%q: %v", key, v, err)
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("Invalid %s=%q: %v", key, v, err)
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Invalid %s=%q: %v", key, v, err)
	}
	return d
}
