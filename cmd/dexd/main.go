package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tokenmarket/soldex/params"
	"github.com/tokenmarket/soldex/pkg/api"
	"github.com/tokenmarket/soldex/pkg/dex"
	"github.com/tokenmarket/soldex/pkg/solana"
	"github.com/tokenmarket/soldex/pkg/storage"
	"github.com/tokenmarket/soldex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	zl, err := newLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	sugar := zl.Sugar()

	sugar.Infow("dexd_starting",
		"rpc_endpoint", cfg.RPC.Endpoint,
		"book_db", cfg.BookDB,
		"api_addr", cfg.Server.Addr)

	// ---- Durable order book ----
	store, err := storage.Open(cfg.BookDB, sugar)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.BookDB, "err", err)
	}
	defer store.Close()

	snapshot, err := store.Load()
	if err != nil {
		sugar.Fatalw("book_load_failed", "err", err)
	}

	book := dex.NewBook()
	book.Restore(snapshot)
	sugar.Infow("book_loaded", "assets", len(snapshot))

	// ---- Service + API ----
	verifier := solana.NewVerifier(cfg.RPC.Endpoint)
	svc := dex.NewService(sugar, book, store, verifier, cfg.RPC.Timeout)
	server := api.NewServer(svc, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(cfg.Server.Addr, cfg.Server.CORSOrigins); err != nil && ctx.Err() == nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("dexd_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}

	// Final save so the disk snapshot matches the in-memory book.
	if err := svc.Persist(); err != nil {
		sugar.Errorw("final_save_failed", "err", err)
	}
}

func newLogger(logFile string) (*zap.Logger, error) {
	if logFile != "" {
		return util.NewLoggerWithFile(logFile)
	}
	return util.NewLogger()
}
