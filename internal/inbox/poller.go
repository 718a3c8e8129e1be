// Package inbox is the single consumer of the messaging gateway's
// inbound mailbox. It polls on a fixed schedule, acknowledges each
// message before processing it, and routes supplier replies to their
// negotiation workflow by signal. Acking first means a crash mid-batch
// loses at most the in-flight messages rather than reprocessing them
// forever; suppliers re-send when they hear nothing back.
package inbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron"

	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
	"rfqbroker/internal/store"
	"rfqbroker/internal/workflows"
)

// Signaler is the slice of the Temporal client the poller needs.
type Signaler interface {
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg any) error
}

type Poller struct {
	messaging gateway.Messaging
	suppliers *store.SupplierRegistry
	signaler  Signaler
	spec      string
	cron      *cron.Cron
	log       *slog.Logger
}

func New(messaging gateway.Messaging, suppliers *store.SupplierRegistry, signaler Signaler, spec string, log *slog.Logger) *Poller {
	return &Poller{
		messaging: messaging,
		suppliers: suppliers,
		signaler:  signaler,
		spec:      spec,
		log:       log,
	}
}

// Start schedules the poll loop. The cron spec comes from config, e.g.
// "@every 30s".
func (p *Poller) Start() error {
	c := cron.New()
	if err := c.AddFunc(p.spec, func() {
		if err := p.PollOnce(context.Background()); err != nil {
			p.log.Error("inbox poll failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule inbox poll %q: %w", p.spec, err)
	}
	c.Start()
	p.cron = c
	p.log.Info("inbox poller started", "spec", p.spec)
	return nil
}

func (p *Poller) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// PollOnce drains the mailbox once. Unroutable messages are logged and
// dropped; per-message routing failures never stop the batch.
func (p *Poller) PollOnce(ctx context.Context) error {
	msgs, err := p.messaging.FetchInbound(ctx)
	if err != nil {
		return fmt.Errorf("fetch inbound: %w", err)
	}

	for _, msg := range msgs {
		// Consume first. Losing one message beats reprocessing it forever.
		if err := p.messaging.Ack(ctx, msg.ID); err != nil {
			p.log.Error("failed to ack inbound message", "messageId", msg.ID, "error", err)
			continue
		}
		p.route(ctx, msg)
	}
	return nil
}

func (p *Poller) route(ctx context.Context, msg model.InboundMessage) {
	rfqID := model.RFQIDFromSubject(msg.Subject)
	if rfqID == "" {
		p.log.Warn("dropping inbound message without thread tag", "messageId", msg.ID, "from", msg.From)
		return
	}
	supplier, err := p.suppliers.FindByContact(msg.From)
	if err != nil {
		p.log.Warn("dropping inbound message from unknown sender", "messageId", msg.ID, "from", msg.From)
		return
	}

	wid := workflows.NegotiationWorkflowID(rfqID, supplier.ID)
	if err := p.signaler.SignalWorkflow(ctx, wid, "", workflows.SupplierReplySignal, msg); err != nil {
		p.log.Error("failed to signal negotiation thread", "workflowId", wid, "error", err)
		return
	}
	p.log.Info("routed supplier reply", "workflowId", wid, "messageId", msg.ID)
}
