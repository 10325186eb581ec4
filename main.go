package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"options-core/internal/api"
	"options-core/internal/events"
	"options-core/internal/market"
	"options-core/internal/monitor"
	"options-core/internal/strategy"
	"options-core/pkg/broker"
	"options-core/pkg/broker/fyers"
	"options-core/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting options engine on port %s (mode=%s)", cfg.Port, cfg.TradingMode)

	stratCfg, err := strategy.LoadConfigFile(cfg.StrategyFile)
	if err != nil {
		log.Printf("strategy config %s not loaded (%v), using defaults", cfg.StrategyFile, err)
	}
	stratCfg = stratCfg.WithDefaults()
	// The env trading mode wins over the YAML file.
	stratCfg.Mode = strategy.Mode(cfg.TradingMode)
	if err := stratCfg.Validate(); err != nil {
		log.Fatalf("invalid strategy config: %v", err)
	}
	log.Printf("strategy: %s fast=%d slow=%d timeframe=%s size=%d",
		stratCfg.UnderlyingSymbol, stratCfg.FastPeriod, stratCfg.SlowPeriod, stratCfg.Timeframe, stratCfg.PositionSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()

	// Counters fed from the event bus.
	signalSub, unsubSignals := bus.Subscribe(events.EventSignal, 100)
	defer unsubSignals()
	tradeSub, unsubTrades := bus.Subscribe(events.EventTrade, 100)
	defer unsubTrades()
	commandSub, unsubCommands := bus.Subscribe(events.EventWebhookCommand, 100)
	defer unsubCommands()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-signalSub:
				metrics.IncrementSignals()
			case <-tradeSub:
				metrics.IncrementTrades()
			case <-commandSub:
				metrics.IncrementWebhookCommands()
			}
		}
	}()

	// Market data and broker gateway selection
	var provider market.HistoryProvider
	var gateway broker.Gateway
	if cfg.UseMockFeed {
		provider = market.NewMockProvider(cfg.MockStartPrice, cfg.MockStartPrice*0.0005, time.Now().UnixNano())
		log.Println("using mock market data feed")
	} else {
		client := fyers.NewClient(cfg.FyersClientID, cfg.FyersAccessToken)
		fp := market.NewFyersProvider(client)
		fp.LookbackDays = cfg.HistoryLookback
		provider = fp
		gateway = client
		log.Println("using fyers market data and order gateway")
	}

	// Option instrument resolution (strike/expiry selection) is an external
	// capability; without it live entries are rejected per operation.
	var resolver strategy.OptionResolver

	strat := strategy.NewEMAOptions(stratCfg, provider)
	controller := strategy.NewController(stratCfg, strat, provider, gateway, resolver, bus)
	if cfg.AutoStart {
		controller.Start()
	}

	// Scheduled evaluation loop
	go func() {
		ticker := time.NewTicker(cfg.IterationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !cfg.UseMockFeed && !market.IsOpen(time.Now()) {
					continue
				}
				timer := monitor.NewTimer(metrics.IterationLatency)
				res := controller.RunIteration(ctx)
				timer.Stop()
				metrics.IncrementIterations()
				if res.Signal != nil {
					log.Printf("iteration: action=%s reason=%s", res.Signal.Action, res.Signal.Reason)
				}
			}
		}
	}()

	// Webhook command channel feeds the same execution path.
	webhook := api.NewWebhookChannel(cfg.WebhookToken, bus)
	webhook.SetCallback(controller.ExecuteCommand)

	passwordHash := cfg.AdminPasswordHash
	if passwordHash == "" {
		log.Println("ADMIN_PASSWORD_HASH not set; control API login disabled")
	}

	server := api.NewServer(bus, controller, webhook, api.OperatorAuth{
		Username:     cfg.AdminUser,
		PasswordHash: passwordHash,
		JWTSecret:    cfg.JWTSecret,
	}, metrics, api.SystemMeta{
		Mode:        stratCfg.Mode,
		Underlying:  stratCfg.UnderlyingSymbol,
		UseMockFeed: cfg.UseMockFeed,
		Version:     version(),
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	controller.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "v1.0-dev"
}
