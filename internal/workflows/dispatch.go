package workflows

import (
	"time"

	"rfqbroker/internal/draft"
	"rfqbroker/internal/match"
	"rfqbroker/internal/model"

	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type DispatchInput struct {
	RFQ    model.RFQ `json:"rfq"`
	Params Params    `json:"params"`
}

// DispatchRFQ fans one RFQ out to its ranked supplier pool. Matching is
// a pure function and runs inline; every send is its own activity so a
// slow or failing supplier never aborts the batch. The RFQ only moves to
// "sent" when at least one message went out; otherwise it stays a draft
// and the result says why.
func DispatchRFQ(ctx workflow.Context, in DispatchInput) (model.DispatchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("dispatch started", "rfqId", in.RFQ.ID, "framework", in.RFQ.Framework)

	result := model.DispatchResult{RFQID: in.RFQ.ID}
	audit := &auditor{}

	_ = workflow.SetQueryHandler(ctx, "dispatch_result", func() (model.DispatchResult, error) {
		return result, nil
	})
	_ = workflow.SetQueryHandler(ctx, "audit_log", func() ([]model.AuditEvent, error) {
		return audit.events, nil
	})

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var pool []model.Supplier
	if err := workflow.ExecuteActivity(ctx, "ListCandidates", in.RFQ.Framework).Get(ctx, &pool); err != nil {
		logger.Error("failed to load candidate pool", "error", err)
		return result, err
	}

	matches := match.NewEngine().Match(in.RFQ, pool, in.RFQ.Timeline)
	result.SuppliersMatched = len(matches)
	audit.append(ctx, "MATCHED", "supplier pool ranked", map[string]any{
		"poolSize": len(pool), "matched": len(matches),
	})

	for _, m := range matches {
		supplier := m.Supplier
		if supplier.Contact == "" {
			result.Errors = append(result.Errors, model.DispatchError{
				SupplierID: supplier.ID,
				Reason:     "no contact channel on file",
			})
			audit.append(ctx, "SKIPPED", "supplier has no contact channel", map[string]any{"supplierId": supplier.ID})
			continue
		}

		msg := draft.InitialMessage(in.RFQ, supplier)
		if err := workflow.ExecuteActivity(ctx, "SendOutbound", msg).Get(ctx, nil); err != nil {
			result.Errors = append(result.Errors, model.DispatchError{
				SupplierID: supplier.ID,
				Reason:     "send failed: " + err.Error(),
			})
			audit.append(ctx, "SEND_FAILED", "outbound RFQ message failed", map[string]any{
				"supplierId": supplier.ID, "error": err.Error(),
			})
			continue
		}
		result.MessagesSent++

		threadID, err := startNegotiation(ctx, in, supplier, msg)
		if err != nil {
			result.Errors = append(result.Errors, model.DispatchError{
				SupplierID: supplier.ID,
				Reason:     "negotiation start failed: " + err.Error(),
			})
			continue
		}
		result.Threads = append(result.Threads, threadID)
		audit.append(ctx, "THREAD_STARTED", "negotiation thread spawned", map[string]any{
			"supplierId": supplier.ID, "workflowId": threadID, "score": m.Score, "priority": m.Priority,
		})
	}

	status := model.RFQStatusDraft
	if result.MessagesSent > 0 {
		status = model.RFQStatusSent
	}
	if err := workflow.ExecuteActivity(ctx, "SetRFQStatus", in.RFQ.ID, status).Get(ctx, nil); err != nil {
		logger.Error("failed to update rfq status", "rfqId", in.RFQ.ID, "error", err)
	}

	result.CompletedAt = workflow.Now(ctx)
	audit.append(ctx, "DONE", "dispatch completed", map[string]any{
		"sent": result.MessagesSent, "errors": len(result.Errors), "status": status,
	})
	logger.Info("dispatch finished", "rfqId", in.RFQ.ID,
		"matched", result.SuppliersMatched, "sent", result.MessagesSent, "errors", len(result.Errors))
	return result, nil
}

// startNegotiation spawns the per-supplier thread as an abandoned child
// so it outlives the dispatch run. Only child start is awaited.
func startNegotiation(ctx workflow.Context, in DispatchInput, supplier model.Supplier, initial model.OutboundMessage) (string, error) {
	wid := NegotiationWorkflowID(in.RFQ.ID, supplier.ID)
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:            wid,
		ParentClosePolicy:     enums.PARENT_CLOSE_POLICY_ABANDON,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	})

	fut := workflow.ExecuteChildWorkflow(cctx, Negotiate, NegotiationInput{
		RFQ:             in.RFQ,
		Supplier:        supplier,
		InitialOutbound: initial,
		Params:          in.Params,
	})

	var exec workflow.Execution
	if err := fut.GetChildWorkflowExecution().Get(ctx, &exec); err != nil {
		return "", err
	}
	return exec.ID, nil
}
