package workflows

import (
	"errors"

	"rfqbroker/internal/model"
)

func (s *WorkflowSuite) TestDispatchFanOutBestEffort() {
	d := newDeps()
	// Pool of 5: 3 on the RFQ's framework (one without a contact), 2 on
	// other frameworks.
	d.suppliers.Upsert(domestic("s1", "s1@x.example"))
	d.suppliers.Upsert(domestic("s2", "s2@x.example"))
	d.suppliers.Upsert(domestic("s3", "")) // unreachable
	d.suppliers.Upsert(model.Supplier{ID: "s4", Framework: model.FrameworkCompostablePack, Country: "US", Contact: "s4@x.example"})
	d.suppliers.Upsert(model.Supplier{ID: "s5", Framework: model.FrameworkTraceableOrigin, Country: "IN", Contact: "s5@x.example"})

	rfq := steelRFQ()
	d.rfqs.Create(rfq)

	env := s.newEnv(d)
	env.ExecuteWorkflow(DispatchRFQ, DispatchInput{RFQ: rfq, Params: testParams()})

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())

	var result model.DispatchResult
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal(3, result.SuppliersMatched, "both off-framework suppliers must be excluded")
	s.Equal(2, result.MessagesSent)
	s.Len(result.Errors, 1)
	s.Equal("s3", result.Errors[0].SupplierID)
	s.Len(result.Threads, 2)

	sent := d.messaging.Sent()
	s.GreaterOrEqual(len(sent), 2)
	s.Equal(rfq.ID, model.RFQIDFromSubject(sent[0].Subject))

	got, err := d.rfqs.Get(rfq.ID)
	s.NoError(err)
	s.Equal(model.RFQStatusSent, got.Status, "at least one send succeeded")
}

func (s *WorkflowSuite) TestDispatchTransportFailureDoesNotAbortBatch() {
	d := newDeps()
	d.suppliers.Upsert(domestic("s1", "dead@x.example"))
	d.suppliers.Upsert(domestic("s2", "live@x.example"))
	d.messaging.FailSendsTo("dead@x.example", errors.New("smtp 550"))

	rfq := steelRFQ()
	d.rfqs.Create(rfq)

	env := s.newEnv(d)
	env.ExecuteWorkflow(DispatchRFQ, DispatchInput{RFQ: rfq, Params: testParams()})

	s.True(env.IsWorkflowCompleted())
	var result model.DispatchResult
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal(2, result.SuppliersMatched)
	s.Equal(1, result.MessagesSent)
	s.Len(result.Errors, 1)
	s.Equal("s1", result.Errors[0].SupplierID)
}

func (s *WorkflowSuite) TestDispatchAllSendsFailLeavesRFQDraft() {
	d := newDeps()
	d.suppliers.Upsert(domestic("s1", "dead@x.example"))
	d.messaging.FailSendsTo("dead@x.example", errors.New("relay down"))

	rfq := steelRFQ()
	d.rfqs.Create(rfq)

	env := s.newEnv(d)
	env.ExecuteWorkflow(DispatchRFQ, DispatchInput{RFQ: rfq, Params: testParams()})

	s.True(env.IsWorkflowCompleted())
	var result model.DispatchResult
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal(0, result.MessagesSent)
	s.NotEmpty(result.Errors)

	got, err := d.rfqs.Get(rfq.ID)
	s.NoError(err)
	s.Equal(model.RFQStatusDraft, got.Status, "no message out, no status change")
}
