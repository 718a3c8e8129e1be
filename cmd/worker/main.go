package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"rfqbroker/internal/activities"
	"rfqbroker/internal/config"
	"rfqbroker/internal/draft"
	"rfqbroker/internal/extract"
	"rfqbroker/internal/gateway"
	"rfqbroker/internal/inbox"
	"rfqbroker/internal/model"
	"rfqbroker/internal/store"
	"rfqbroker/internal/workflows"
	"rfqbroker/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slogger := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    sdklog.NewStructuredLogger(slogger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	// Providers fall back to mocks when unconfigured so the whole
	// pipeline runs locally against a bare Temporal dev server.
	var messaging gateway.Messaging
	if ep := cfg.Providers.Messaging; ep.BaseURL != "" {
		messaging = gateway.NewHTTPMessaging(ep.BaseURL, ep.APIKey)
	} else {
		slogger.Warn("messaging provider not configured, using mock")
		messaging = gateway.NewMockMessaging()
	}
	if err := messaging.Connect(ctx); err != nil {
		log.Fatalf("connect messaging: %v", err)
	}
	defer messaging.Close()

	var understanding gateway.Understanding
	var generation gateway.Generation
	if ai := cfg.Providers.TextAI; ai.BaseURL != "" {
		httpAI := gateway.NewHTTPTextAI(ai.BaseURL, ai.APIKey, ai.Model)
		understanding, generation = httpAI, httpAI
	} else {
		slogger.Warn("text AI provider not configured, using mock")
		mockAI := gateway.NewMockTextAI()
		understanding, generation = mockAI, mockAI
	}

	var esign gateway.ESign = gateway.NewMockESign()
	if ep := cfg.Providers.ESign; ep.BaseURL != "" {
		esign = gateway.NewHTTPESign(ep.BaseURL, ep.APIKey)
	}
	var escrow gateway.Escrow = gateway.NewMockEscrow()
	if ep := cfg.Providers.Escrow; ep.BaseURL != "" {
		escrow = gateway.NewHTTPEscrow(ep.BaseURL, ep.APIKey)
	}
	// Payout keeps its own not-configured fallback inside the activity,
	// so the HTTP client is constructed unconditionally.
	payout := gateway.NewHTTPPayout(cfg.Providers.Payout.BaseURL, cfg.Providers.Payout.APIKey)

	var directory gateway.Directory = gateway.NewMockDirectory()
	if ep := cfg.Providers.Directory; ep.BaseURL != "" {
		directory = gateway.NewHTTPDirectory(ep.BaseURL, ep.APIKey)
	}

	suppliers := store.NewSupplierRegistry()
	rfqs := store.NewRFQRegistry()
	seedSuppliers(ctx, directory, suppliers, slogger)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DispatchRFQ)
	w.RegisterWorkflow(workflows.Negotiate)
	w.RegisterWorkflow(workflows.SettleContract)

	a := &activities.Activities{
		Messaging: messaging,
		Extractor: extract.New(understanding, slogger),
		Drafter:   draft.New(generation, cfg.Negotiation.TargetMarginPct),
		ESign:     esign,
		Escrow:    escrow,
		Payout:    payout,
		Suppliers: suppliers,
		RFQs:      rfqs,
		Log:       slogger,
	}
	w.RegisterActivity(a)

	poller := inbox.New(messaging, suppliers, c, cfg.Negotiation.InboxPollSpec, slogger)
	if err := poller.Start(); err != nil {
		log.Fatalf("start inbox poller: %v", err)
	}
	defer poller.Stop()

	slogger.Info("worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

// seedSuppliers fills the worker-local registry from the directory at
// boot. The admin sync endpoint does the same for the API process.
func seedSuppliers(ctx context.Context, directory gateway.Directory, suppliers *store.SupplierRegistry, slogger *slog.Logger) {
	pools := []model.Framework{
		model.FrameworkBuyDomestic,
		model.FrameworkCompostablePack,
		model.FrameworkTraceableOrigin,
	}
	for _, fw := range pools {
		list, err := directory.ListSuppliers(ctx, fw)
		if err != nil {
			slogger.Warn("supplier seed failed", "framework", fw, "error", err)
			continue
		}
		for _, s := range list {
			suppliers.Upsert(s)
		}
	}
	slogger.Info("supplier pool seeded", "count", suppliers.Count())
}
