package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-washer/infrastructure/middleware"
	"github.com/ahrav/go-washer/internal/application"
	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/laundry"
	"github.com/ahrav/go-washer/internal/logging"
)

// pollEvery is how often the status loop checks whether the cycle ended.
const pollEvery = 50 * time.Millisecond

// maxSafetyDrain bounds the simulated time spent draining after an
// interrupt.
const maxSafetyDrain = 30 * time.Minute

type runOptions struct {
	ConfigPath  string
	Cycle       string
	TimeFactor  float64
	MetricsAddr string
	StatusEvery time.Duration
	Towels      int
	Socks       int
	Detergent   string
	Dose        float64
	PreWash     bool
	Log         logr.Logger
}

// run assembles the appliance, starts the scripted wash and blocks until
// the cycle ends or ctx is done.
func run(ctx context.Context, opts runOptions, out io.Writer) error {
	log := logging.OrDiscard(opts.Log)

	bp, err := loadBlueprint(opts.ConfigPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := middleware.NewPrometheusMetrics(reg)

	app, err := application.Build(bp, application.BuildOptions{
		Log:      log,
		Observer: middleware.NewOTelCycleObserver(ctx, nil, metrics),
		Scanner:  middleware.NewMetricsScanner(metrics),
	})
	if err != nil {
		return fmt.Errorf("assemble appliance: %w", err)
	}
	w := app.Washer

	if opts.TimeFactor > 0 {
		if err := w.SetTimeFactor(opts.TimeFactor); err != nil {
			return err
		}
	}
	items, err := prepare(w, bp.Config, opts)
	if err != nil {
		return err
	}
	snap := w.Snapshot()
	fmt.Fprintf(out, "Starting %s with %d items (%s, time factor %g)\n",
		snap.Selected, len(items), snap.Duration, snap.TimeFactor)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return app.Engine.Run(gctx) })

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("Serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if !w.Start() {
		cancel()
		_ = g.Wait()
		return errors.New("washer refused to start")
	}

	var finished bool
	g.Go(func() error {
		ticker := time.NewTicker(pollEvery)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			snap := w.Snapshot()
			// A finished cycle may still be draining behind a locked door.
			if !snap.Running && !snap.DoorLocked {
				finished = true
				cancel()
				return nil
			}
			if opts.StatusEvery > 0 && time.Since(last) >= opts.StatusEvery {
				printStatus(out, snap)
				last = time.Now()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if !finished {
		if !stopSafely(app) {
			fmt.Fprintln(out, "Interrupted; door still locked")
			return nil
		}
		fmt.Fprintln(out, "Interrupted; drum drained and door unlocked")
		return nil
	}
	report(out, w, app)
	return nil
}

// stopSafely stops the cycle and steps the engine unpaced until the safety
// drain has unlocked the door. It reports whether the door unlocked.
func stopSafely(app *application.Appliance) bool {
	w := app.Washer
	w.Stop()
	limit := app.Engine.Clock().TicksFor(maxSafetyDrain)
	for range limit {
		if !w.DoorLocked() {
			return true
		}
		app.Engine.Step()
	}
	return !w.DoorLocked()
}

func loadBlueprint(path string) (*application.Blueprint, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return loader.LoadConfig(application.DefaultConfig())
	}
	return loader.LoadFromFile(path)
}

// prepare loads the laundry, doses the detergent and selects the cycle.
func prepare(w *laundry.Washer, cfg *application.WasherConfig, opts runOptions) ([]*domain.Body, error) {
	items := basket(opts.Towels, opts.Socks)
	if len(items) > 0 && !w.Load(items...) {
		return nil, fmt.Errorf("%d items do not fit the drum", len(items))
	}
	if !w.TogglePower() {
		return nil, errors.New("washer did not power on")
	}
	if opts.Cycle != "" {
		if err := w.SelectCycle(opts.Cycle); err != nil {
			return nil, err
		}
	}
	if opts.PreWash && !w.TogglePreWash() {
		return nil, fmt.Errorf("cycle %s has no pre-wash", w.Snapshot().Selected)
	}

	if opts.Dose > 0 {
		additive, ok := domain.LookupAdditive(opts.Detergent)
		if !ok {
			return nil, fmt.Errorf("unknown additive %q: %w", opts.Detergent, domain.ErrInvalidConfiguration)
		}
		w.OpenDispenserTray()
		dose := domain.NewSubstance(additive, domain.Volume(opts.Dose), cfg.Supply.WaterTemperature)
		if !w.FillSlot(domain.SlotMainDetergent, dose) {
			return nil, fmt.Errorf("detergent slot rejected %g L of %s", opts.Dose, opts.Detergent)
		}
		if opts.PreWash {
			w.FillSlot(domain.SlotPreWash, domain.NewSubstance(additive, domain.Volume(opts.Dose/2), cfg.Supply.WaterTemperature))
		}
	}
	return items, nil
}

func basket(towels, socks int) []*domain.Body {
	items := make([]*domain.Body, 0, towels+socks)
	for i := range towels {
		towel := domain.NewTowel(domain.BodyID(fmt.Sprintf("towel-%d", i+1)), 1.2)
		items = append(items, towel.WithStain(domain.NewSubstance(domain.Dirt, 0.02, 20)))
	}
	for i := range socks {
		sock := domain.NewSock(domain.BodyID(fmt.Sprintf("sock-%d", i+1)), domain.SizeM, 0.1)
		items = append(items, sock.WithStain(domain.NewSubstance(domain.Sweat, 0.005, 30)))
	}
	return items
}

func printStatus(out io.Writer, s domain.WasherSnapshot) {
	status := "running"
	if s.Paused {
		status = "paused"
	}
	fmt.Fprintf(out, "[%s/%s] %s %s/%s water=%.2fL temp=%.1f°C rpm=%.0f energy=%.0fJ\n",
		s.RunningTime.Truncate(time.Second), s.Duration, status, s.Stage, s.Phase,
		float64(s.ExcessLiquid), float64(s.LiquidTemperature), float64(s.MotorSpeed), float64(s.EnergyUsed))
}

func report(out io.Writer, w *laundry.Washer, app *application.Appliance) {
	s := w.Snapshot()
	fmt.Fprintf(out, "Finished %s in %s: energy %.0f J, drained %.2f L, sink received %.2f L\n",
		s.Selected, s.RunningTime.Truncate(time.Second), float64(s.EnergyUsed), float64(s.Drained), float64(app.Sink.ReceivedAmount()))
	for _, it := range w.UnloadAll() {
		fmt.Fprintf(out, "  %-8s stain %.4f L, soaked %.2f L, freshness %.2f\n",
			it.ID(), float64(it.StainAmount()), float64(it.SoakedAmount()), it.Freshness())
	}
}
