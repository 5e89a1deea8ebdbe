package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote-streamer/src/client"
	"quote-streamer/src/codec"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

type logLevel string

func (l logLevel) GetLogLevel() string { return string(l) }

func main() {
	// 1. Parse command line flags
	serverHost := flag.String("server", "127.0.0.1", "quote server host")
	commandPort := flag.Int("command-port", 8080, "server command (TCP) port")
	dataPort := flag.Int("data-port", 8081, "server data (UDP) port")
	listenPort := flag.Int("listen-port", 34254, "local UDP port to receive quotes on")
	symbolsPath := flag.String("path", "config/tickers.txt", "file with the tickers to subscribe to")
	codecName := flag.String("codec", "json", "quote encoding: json or protobuf")
	keepAlive := flag.Duration("keepalive", client.DefaultKeepAlive, "keep-alive interval")
	level := flag.String("log-level", "INFO", "log level")
	flag.Parse()

	appLogger := logger.NewLogger(logLevel(*level), "QuoteClient")

	// 2. Load tickers
	f, err := os.Open(*symbolsPath)
	if err != nil {
		appLogger.Critical("Failed to open ticker file: %v", err)
	}
	symbols, err := models.ReadSymbolList(f)
	f.Close()
	if err != nil {
		appLogger.Critical("Invalid ticker file %s: %v", *symbolsPath, err)
	}

	qc, err := codec.NewQuoteCodec(*codecName)
	if err != nil {
		appLogger.Critical("%v", err)
	}

	// 3. Bind the data socket and subscribe
	c, err := client.New(client.Options{
		ServerHost:  *serverHost,
		CommandPort: *commandPort,
		DataPort:    *dataPort,
		ListenPort:  *listenPort,
		Symbols:     symbols,
		Codec:       qc,
		KeepAlive:   *keepAlive,
	}, appLogger)
	if err != nil {
		appLogger.Critical("Failed to start client: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_, err = c.Subscribe(subCtx)
	cancel()
	if err != nil {
		appLogger.Critical("Subscription failed: %v", err)
	}

	// 4. Print quotes until interrupted
	appLogger.Info("Receiving quotes on port %d, press Ctrl+C to stop", c.LocalPort())
	err = c.Run(ctx, func(q models.MQuote) {
		fmt.Printf("%-6s %12.4f %8d %d\n", q.Symbol, q.Price, q.Volume, q.Timestamp)
	})
	if err != nil {
		appLogger.Error("Receive loop failed: %v", err)
	}
	appLogger.Info("Client stopped")
}
