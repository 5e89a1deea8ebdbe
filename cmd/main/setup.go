package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"quote-streamer/src/config"
	"quote-streamer/src/generator"
	"quote-streamer/src/intake"
	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
	"quote-streamer/src/sinks"
	"quote-streamer/src/storage"
	"quote-streamer/src/utils"
)

// -----------------------------------------------------------------------------

// setupJournal opens the session journal when storage is enabled. It returns
// nil otherwise.
func setupJournal(config *models.MConfig, appLogger *logger.Logger) interfaces.ISessionJournal {
	if !config.Storage.Enabled {
		appLogger.Info("Session journal disabled")
		return nil
	}

	journalLogger := logger.NewLogger(config, "SessionJournal")
	journal, err := storage.NewSessionJournal(config, journalLogger)
	if err != nil {
		appLogger.Critical("Failed to init session journal: %v", err)
		return nil
	}
	if err := journal.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate session journal: %v", err)
		return nil
	}
	return journal
}

// -----------------------------------------------------------------------------

// setupMarket returns the exchange calendar used for off-hours volume, or nil
// when no MIC is configured.
func setupMarket(config *models.MConfig) interfaces.IMarketHours {
	if config.Generator.MarketMIC == "" {
		return nil
	}
	return utils.NewMarketScheduler(config.Generator.MarketMIC, logger.NewLogger(config, "MarketScheduler"))
}

// -----------------------------------------------------------------------------

// setupGenerator builds the tick generator from the generator section
func setupGenerator(conf *config.Config, market interfaces.IMarketHours) *generator.TickGenerator {
	g := conf.Generator
	gen := generator.NewTickGenerator(generator.Options{
		Symbols:              conf.TrackedSymbols(),
		LiquidSymbols:        models.ParseSymbols(g.LiquidSymbols),
		Interval:             time.Duration(g.IntervalMs) * time.Millisecond,
		InitialPrice:         g.InitialPrice,
		MaxStep:              g.MaxStep,
		PriceFloor:           g.PriceFloor,
		ChannelBuffer:        g.ChannelBuffer,
		OffHoursVolumeFactor: g.OffHoursVolumeFactor,
	}, logger.NewLogger(conf, "TickGenerator"))
	gen.Market = market
	return gen
}

// -----------------------------------------------------------------------------

// setupTransport binds the UDP data socket and the TCP command listener
func setupTransport(config *models.MConfig, appLogger *logger.Logger) (*intake.UDPEndpoint, net.Listener) {
	t := config.Transport

	udp, err := intake.ListenUDP(fmt.Sprintf("%s:%d", t.BindHost, t.DataPort), logger.NewLogger(config, "DataSocket"))
	if err != nil {
		appLogger.Critical("Failed to bind data port: %v", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", t.BindHost, t.CommandPort))
	if err != nil {
		udp.Close()
		appLogger.Critical("Failed to listen for commands: %v", err)
	}
	return udp, lis
}

// -----------------------------------------------------------------------------

// setupSinks connects the enabled quote mirrors. A sink that cannot connect is
// skipped with an error; quote distribution does not depend on it.
func setupSinks(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) []interfaces.IQuoteSink {
	var out []interfaces.IQuoteSink

	if config.Sinks.Redis.Enabled {
		redisSink, err := sinks.NewRedisSink(ctx, config.Sinks.Redis, logger.NewLogger(config, "RedisSink"))
		if err != nil {
			appLogger.Error("Redis sink disabled: %v", err)
		} else {
			out = append(out, redisSink)
		}
	}

	if config.Sinks.Kafka.Enabled {
		out = append(out, sinks.NewKafkaSink(config.Sinks.Kafka))
		appLogger.Info("Kafka sink writing to %v topic %s", config.Sinks.Kafka.Brokers, config.Sinks.Kafka.Topic)
	}

	return out
}

func pumpSink(ctx context.Context, source interfaces.IQuoteSource, sink interfaces.IQuoteSink, config *models.MConfig) {
	sinks.Pump(ctx, source, sink, logger.NewLogger(config, "Sink."+sink.Name()))
}
