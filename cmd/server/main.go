package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gigpig-app/gigchat/internal/api"
	"github.com/gigpig-app/gigchat/internal/broker"
	"github.com/gigpig-app/gigchat/internal/config"
	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/push"
	"github.com/gigpig-app/gigchat/internal/search"
	"github.com/gigpig-app/gigchat/internal/server"
	"github.com/gigpig-app/gigchat/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "9gfRJGnlXMqcb1hBTdMWVp1g8hQoFRoXE99iAj2MBQE="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	migrationsDir  string
	redisAddr      string
	kafkaBrokers   stringSliceFlag
	kafkaTopic     string
	pushEnabled    bool
	pushURL        string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&migrationsDir, "migrations-dir", "migrations", "directory containing database migrations, empty to skip")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for cross-process broadcast, empty for in-process only")
	flag.Var(&kafkaBrokers, "kafka-brokers", "comma-separated kafka brokers for search-index events, empty to disable")
	flag.StringVar(&kafkaTopic, "kafka-topic", "gigchat.rooms", "kafka topic for search-index events")
	flag.BoolVar(&pushEnabled, "push", false, "enable push notifications")
	flag.StringVar(&pushURL, "push-url", "", "override the push service URL")
	flag.Parse()

	logger := log.New(os.Stderr, "[gigchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins,
		config.WithRedis(redisAddr),
		config.WithKafka(kafkaBrokers, kafkaTopic),
		config.WithPush(pushEnabled, pushURL),
	)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if migrationsDir != "" {
		if err := dbConn.Migrate(migrationsDir); err != nil {
			logger.Fatal("migrate:", err)
		}
	}

	var bkr broker.Broker
	if cfg.RedisAddr != "" {
		bkr, err = broker.NewRedisBroker(logger, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("redis broker:", err)
		}
	} else {
		bkr = broker.NewMemoryBroker(logger)
	}
	defer func() {
		if err := bkr.Close(); err != nil {
			logger.Println("broker close:", err)
		}
	}()

	var notifier search.Notifier = search.NoopNotifier{}
	if len(cfg.KafkaBrokers) > 0 {
		notifier = search.NewKafkaNotifier(logger, cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Println("notifier close:", err)
		}
	}()

	var pushDispatcher push.Dispatcher
	if cfg.PushEnabled {
		pushDispatcher = push.NewExpoDispatcher(logger, dbConn, cfg.ExpoPushURL)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, dbConn, bkr, pushDispatcher, notifier, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewGigChatApp(mux, logger, chatServer, dbConn, notifier, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
