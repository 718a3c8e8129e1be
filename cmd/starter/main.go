package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"rfqbroker/internal/config"
	"rfqbroker/internal/model"
	"rfqbroker/internal/workflows"
)

// Demo starter: fires one dispatch workflow from the command line and
// waits for the fan-out summary. The API server is the real entry point.
func main() {
	var (
		framework = flag.String("framework", string(model.FrameworkBuyDomestic), "sourcing framework")
		product   = flag.String("product", "cold rolled steel plates", "product type")
		quantity  = flag.Int("quantity", 500, "order quantity")
		timeline  = flag.String("timeline", string(model.TimelineOneMonth), "urgent, 1month, 3months or flexible")
		buyer     = flag.String("buyer", "buyer-demo", "buyer id")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	c, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort, Namespace: cfg.Temporal.Namespace})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	now := time.Now().UTC()
	rfq := model.RFQ{
		ID:           "rfq-" + uuid.NewString()[:8],
		BuyerID:      *buyer,
		BuyerContact: *buyer + "@demo.example",
		Framework:    model.Framework(*framework),
		Requirements: model.Requirements{ProductType: *product, Quantity: *quantity},
		Timeline:     model.Timeline(*timeline),
		Status:       model.RFQStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.DispatchWorkflowID(rfq.ID),
		TaskQueue:                                cfg.Temporal.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	we, err := c.ExecuteWorkflow(ctx, opts, workflows.DispatchRFQ, workflows.DispatchInput{
		RFQ: rfq,
		Params: workflows.Params{
			ConfidenceThreshold: cfg.Negotiation.ConfidenceThreshold,
			TargetMarginPct:     cfg.Negotiation.TargetMarginPct,
			ReplyDeadline:       cfg.Negotiation.ReplyDeadline.Std(),
			SignaturePollEvery:  cfg.Negotiation.SignaturePollEvery.Std(),
			SignatureDeadline:   cfg.Negotiation.SignatureDeadline.Std(),
			CommissionPct:       cfg.Brokerage.CommissionPct,
			Currency:            cfg.Brokerage.Currency,
			Broker: model.Party{
				ID:      cfg.Brokerage.BrokerID,
				Name:    cfg.Brokerage.BrokerName,
				Contact: cfg.Brokerage.BrokerContact,
			},
			BrokerPayoutAccount: cfg.Brokerage.BrokerPayoutAccount,
		},
	})
	if err != nil {
		log.Fatalf("unable to execute workflow: %v", err)
	}
	log.Printf("started dispatch: WorkflowID=%s RunID=%s", we.GetID(), we.GetRunID())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Minute)
	defer waitCancel()

	var result model.DispatchResult
	if err := we.Get(waitCtx, &result); err != nil {
		log.Fatalf("unable to get workflow result: %v", err)
	}
	log.Printf("dispatch done: matched=%d sent=%d errors=%d threads=%v",
		result.SuppliersMatched, result.MessagesSent, len(result.Errors), result.Threads)
}
