package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"cryptohornet/internal/announce"
	"cryptohornet/internal/config"
	"cryptohornet/internal/exchange"
	"cryptohornet/internal/fetch"
	"cryptohornet/internal/logger"
	"cryptohornet/internal/models"
	"cryptohornet/internal/resolve"
	"cryptohornet/internal/storage"
	"cryptohornet/internal/telegram"
	"cryptohornet/internal/watcher"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	httpClient, err := fetch.NewClient(fetch.Config{
		Timeout:        cfg.HTTP.Timeout,
		Proxy:          cfg.HTTP.Proxy,
		ScraperURL:     cfg.HTTP.ScraperURL,
		MaxRetries:     cfg.HTTP.MaxRetries,
		RetryDelayBase: cfg.HTTP.RetryDelayBase,
		UserAgent:      cfg.HTTP.UserAgent,
	})
	if err != nil {
		logger.Fatal("Failed to initialize HTTP client: %v", err)
	}

	registry := exchange.NewRegistry(httpClient)

	feeds, err := buildFeeds(cfg.Watch.Feeds, registry)
	if err != nil {
		logger.Fatal("Invalid feed list: %v", err)
	}

	crawler := announce.NewCrawler(httpClient)
	pipeline := resolve.New(registry, crawler, feedExchanges(cfg.Watch.Feeds))

	var telegramClient *telegram.Client
	var notifier watcher.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MinSendGap, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled, announcements go to the log")
	}

	w := watcher.New(store, pipeline, notifier, watcher.Config{
		PollInterval:  cfg.Watch.PollInterval,
		SweepInterval: cfg.Watch.SweepInterval,
		OnlyUSDT:      cfg.Watch.OnlyUSDT,
		MaxExtraTimes: cfg.Watch.MaxExtraTimes,
		ChatID:        chatIDOf(cfg.Telegram.ChatID),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
		if err := telegramClient.SendStartupNotice(cfg.Watch.Feeds); err != nil {
			logger.Warn("Failed to send startup notice: %v", err)
		}
	}

	logger.Info("Starting listing watcher (feeds: %d, poll: %v, sweep: %v)",
		len(feeds), cfg.Watch.PollInterval, cfg.Watch.SweepInterval)

	var wg sync.WaitGroup
	for _, feed := range feeds {
		wg.Add(1)
		go func(f watcher.Feed) {
			defer wg.Done()
			w.RunFeed(ctx, f)
		}(feed)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.RunSweep(ctx)
	}()

	wg.Wait()
	logger.Info("Service stopped")
}

// buildFeeds resolves the configured exchange:market entries against
// the registry.
func buildFeeds(entries []string, registry *exchange.Registry) ([]watcher.Feed, error) {
	var feeds []watcher.Feed
	for _, entry := range entries {
		ex, market, _ := strings.Cut(entry, ":")
		fetcher, ok := registry.Fetcher(ex, models.Market(market))
		if !ok {
			logger.Warn("No fetcher for feed %q, skipping", entry)
			continue
		}
		feeds = append(feeds, watcher.Feed{
			Exchange: ex,
			Market:   models.Market(market),
			Fetch:    fetcher,
		})
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("none of the configured feeds has a fetcher")
	}
	return feeds, nil
}

// feedExchanges returns the distinct exchanges of the feed list, in
// first-seen order, for the generic announcement scan.
func feedExchanges(entries []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, entry := range entries {
		ex, _, _ := strings.Cut(entry, ":")
		if ex == "" || seen[ex] {
			continue
		}
		seen[ex] = true
		out = append(out, ex)
	}
	return out
}

func chatIDOf(chatID string) int64 {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
