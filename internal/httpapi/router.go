// Package httpapi exposes the orchestrator over HTTP: RFQ creation with
// detached dispatch, workflow inspection via queries, external signals
// (replies, buyer acceptance, delivery confirmation) and the single
// authenticated admin endpoint that populates the supplier pool.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"rfqbroker/internal/config"
	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
	"rfqbroker/internal/store"
	"rfqbroker/internal/workflows"
)

// WorkflowClient is the slice of the Temporal client the API needs, so
// handler tests can run against a fake instead of a live server.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...any) (converter.EncodedValue, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg any) error
}

type Server struct {
	tc        WorkflowClient
	cfg       *config.Config
	suppliers *store.SupplierRegistry
	rfqs      *store.RFQRegistry
	directory gateway.Directory
	log       *slog.Logger
}

func NewServer(tc WorkflowClient, cfg *config.Config, suppliers *store.SupplierRegistry, rfqs *store.RFQRegistry, directory gateway.Directory, log *slog.Logger) *Server {
	return &Server{tc: tc, cfg: cfg, suppliers: suppliers, rfqs: rfqs, directory: directory, log: log}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Post("/rfqs", s.createRFQ)
	r.Get("/rfqs/{rfqId}", s.getRFQ)

	r.Route("/workflows/{workflowId}", func(r chi.Router) {
		r.Get("/dispatch", s.queryInto("dispatch_result", func() any { return &model.DispatchResult{} }))
		r.Get("/thread", s.queryInto("thread", func() any { return &model.NegotiationThread{} }))
		r.Get("/contract", s.queryInto("contract", func() any { return &model.Contract{} }))
		r.Get("/escrow", s.queryInto("escrow", func() any { return &model.EscrowPayment{} }))
		r.Get("/audit", s.queryInto("audit_log", func() any { return &[]model.AuditEvent{} }))
		r.Post("/reply", s.signalReply)
		r.Post("/accept", s.signalAccept)
		r.Post("/delivery", s.signalDelivery)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(s.cfg.Auth))
		r.Post("/admin/suppliers/sync", s.syncSuppliers)
	})

	return r
}

type createRFQRequest struct {
	BuyerID      string             `json:"buyerId"`
	BuyerContact string             `json:"buyerContact"`
	Framework    model.Framework    `json:"framework"`
	Requirements model.Requirements `json:"requirements"`
	Timeline     model.Timeline     `json:"timeline"`
}

type createRFQResponse struct {
	RFQID      string `json:"rfqId"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// createRFQ registers the RFQ and fires the dispatch workflow detached:
// the response returns as soon as the workflow has started, and progress
// is observed by polling the RFQ status or the dispatch query.
func (s *Server) createRFQ(w http.ResponseWriter, r *http.Request) {
	var req createRFQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BuyerID == "" || req.Framework == "" {
		http.Error(w, "invalid body: buyerId and framework are required", http.StatusBadRequest)
		return
	}
	if req.Timeline == "" {
		req.Timeline = model.TimelineFlexible
	}

	now := time.Now().UTC()
	rfq := model.RFQ{
		ID:           "rfq-" + uuid.NewString()[:8],
		BuyerID:      req.BuyerID,
		BuyerContact: req.BuyerContact,
		Framework:    req.Framework,
		Requirements: req.Requirements,
		Timeline:     req.Timeline,
		Status:       model.RFQStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.rfqs.Create(rfq)

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.DispatchWorkflowID(rfq.ID),
		TaskQueue:                                s.cfg.Temporal.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	we, err := s.tc.ExecuteWorkflow(ctx, opts, workflows.DispatchRFQ, workflows.DispatchInput{
		RFQ:    rfq,
		Params: s.params(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, createRFQResponse{RFQID: rfq.ID, WorkflowID: we.GetID(), RunID: we.GetRunID()})
}

func (s *Server) getRFQ(w http.ResponseWriter, r *http.Request) {
	rfq, err := s.rfqs.Get(chi.URLParam(r, "rfqId"))
	if err != nil {
		http.Error(w, "rfq not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rfq)
}

// queryInto serves one workflow query as JSON. The target factory keeps
// decoding typed per endpoint.
func (s *Server) queryInto(queryType string, target func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID := chi.URLParam(r, "workflowId")
		runID := r.URL.Query().Get("runId")

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		qr, err := s.tc.QueryWorkflow(ctx, workflowID, runID, queryType)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := target()
		if err := qr.Get(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// signalReply forwards a supplier reply by hand; the mailbox poller does
// the same thing automatically for messages with a thread tag.
func (s *Server) signalReply(w http.ResponseWriter, r *http.Request) {
	var msg model.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.Text == "" {
		http.Error(w, "invalid body: text is required", http.StatusBadRequest)
		return
	}
	if msg.ID == "" {
		msg.ID = "manual-" + uuid.NewString()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	s.signal(w, r, workflows.SupplierReplySignal, msg)
}

func (s *Server) signalAccept(w http.ResponseWriter, r *http.Request) {
	var accept workflows.AcceptQuote
	if err := json.NewDecoder(r.Body).Decode(&accept); err != nil {
		http.Error(w, "invalid body: {\"round\": n}", http.StatusBadRequest)
		return
	}
	accept.DecidedAt = time.Now().UTC()
	s.signal(w, r, workflows.BuyerAcceptSignal, accept)
}

func (s *Server) signalDelivery(w http.ResponseWriter, r *http.Request) {
	var delivery workflows.DeliveryConfirmation
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		http.Error(w, "invalid body: {\"reference\": \"...\"}", http.StatusBadRequest)
		return
	}
	delivery.ConfirmedAt = time.Now().UTC()
	s.signal(w, r, workflows.DeliveryConfirmedSignal, delivery)
}

func (s *Server) signal(w http.ResponseWriter, r *http.Request, name string, arg any) {
	workflowID := chi.URLParam(r, "workflowId")
	runID := r.URL.Query().Get("runId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.tc.SignalWorkflow(ctx, workflowID, runID, name, arg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) params() workflows.Params {
	return workflows.Params{
		ConfidenceThreshold: s.cfg.Negotiation.ConfidenceThreshold,
		TargetMarginPct:     s.cfg.Negotiation.TargetMarginPct,
		ReplyDeadline:       s.cfg.Negotiation.ReplyDeadline.Std(),
		SignaturePollEvery:  s.cfg.Negotiation.SignaturePollEvery.Std(),
		SignatureDeadline:   s.cfg.Negotiation.SignatureDeadline.Std(),
		CommissionPct:       s.cfg.Brokerage.CommissionPct,
		Currency:            s.cfg.Brokerage.Currency,
		Broker: model.Party{
			ID:      s.cfg.Brokerage.BrokerID,
			Name:    s.cfg.Brokerage.BrokerName,
			Contact: s.cfg.Brokerage.BrokerContact,
		},
		BrokerPayoutAccount: s.cfg.Brokerage.BrokerPayoutAccount,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger is a minimal slog access log.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"durationMs", time.Since(start).Milliseconds(),
				"requestId", middleware.GetReqID(r.Context()),
			)
		})
	}
}
