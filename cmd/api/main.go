package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"rfqbroker/internal/config"
	"rfqbroker/internal/gateway"
	"rfqbroker/internal/httpapi"
	"rfqbroker/internal/store"
	"rfqbroker/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slogger := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    sdklog.NewStructuredLogger(slogger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer tc.Close()

	var directory gateway.Directory = gateway.NewMockDirectory()
	if ep := cfg.Providers.Directory; ep.BaseURL != "" {
		directory = gateway.NewHTTPDirectory(ep.BaseURL, ep.APIKey)
	} else {
		slogger.Warn("directory provider not configured, using mock")
	}

	srv := httpapi.NewServer(tc, cfg,
		store.NewSupplierRegistry(),
		store.NewRFQRegistry(),
		directory,
		slogger,
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slogger.Info("api listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("api exited: %v", err)
	}
}
