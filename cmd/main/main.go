package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/config"
	"quote-streamer/src/intake"
	"quote-streamer/src/liveness"
	"quote-streamer/src/logger"
	"quote-streamer/src/registry"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file (empty for defaults and environment only)")
	flag.Parse()

	// 2. Load config
	conf, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)
	defer appLogger.Sync()

	// 4. Setup Components
	quoteCodec, err := codec.NewQuoteCodec(conf.Transport.Codec)
	if err != nil {
		appLogger.Critical("Failed to select codec: %v", err)
	}

	journal := setupJournal(conf.MConfig, appLogger)
	market := setupMarket(conf.MConfig)
	gen := setupGenerator(conf, market)

	reg := registry.NewRegistry(gen, quoteCodec, journal, logger.NewLogger(conf, "Registry"))
	monitor := liveness.NewMonitor(time.Duration(conf.Liveness.TimeoutSeconds)*time.Second, logger.NewLogger(conf, "Liveness"))

	udp, lis := setupTransport(conf.MConfig, appLogger)
	commands := &intake.CommandIntake{
		Registry:    reg,
		Liveness:    monitor,
		Transport:   udp,
		ReadTimeout: time.Duration(conf.Transport.ReadTimeoutMs) * time.Millisecond,
		MaxBytes:    conf.Transport.MaxCommandBytes,
		Logger:      logger.NewLogger(conf, "CommandIntake"),
	}

	// 5. Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			appLogger.Debug("%s stopped", name)
		}()
	}

	// 6. Start the engine
	run("generator", func() { gen.Run(ctx) })
	run("keep-alive listener", func() {
		if err := udp.ServeKeepAlives(ctx, monitor); err != nil {
			appLogger.Error("Keep-alive listener failed: %v", err)
		}
	})
	run("command intake", func() {
		if err := commands.Serve(ctx, lis); err != nil {
			appLogger.Error("Command intake failed: %v", err)
		}
	})
	run("liveness scanner", func() {
		interval := time.Duration(conf.Liveness.CheckIntervalMs) * time.Millisecond
		monitor.RunEvictions(ctx, interval, reg)
	})

	sinks := setupSinks(ctx, conf.MConfig, appLogger)
	for _, sink := range sinks {
		run(sink.Name()+" sink", func() { pumpSink(ctx, gen, sink, conf.MConfig) })
	}

	// 7. Start Servers
	servers := startServers(ctx, conf, engine{
		feed:     gen,
		registry: reg,
		liveness: monitor,
		journal:  journal,
		market:   market,
		codec:    quoteCodec,
	}, appLogger)

	appLogger.Info("Quote server %s running: commands on tcp %s, quotes on udp %s, %d symbols every %dms",
		conf.Name, lis.Addr(), udp.LocalAddr(), len(gen.Symbols()), conf.Generator.IntervalMs)

	// 8. Wait for a signal, then shut down in dependency order
	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	servers.stop(shutdownCtx)

	wg.Wait()
	reg.Close()
	udp.Close()
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			appLogger.Warning("Closing %s sink: %v", sink.Name(), err)
		}
	}
	if journal != nil {
		if err := journal.Close(); err != nil {
			appLogger.Error("Closing session journal: %v", err)
		}
	}
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.NewConfig(path)
}
