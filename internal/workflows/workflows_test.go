package workflows

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"rfqbroker/internal/activities"
	"rfqbroker/internal/draft"
	"rfqbroker/internal/extract"
	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
	"rfqbroker/internal/store"
)

// fixtures shared by the workflow suites.

type deps struct {
	messaging *gateway.MockMessaging
	ai        *gateway.MockTextAI
	esign     *gateway.MockESign
	escrow    *gateway.MockEscrow
	payout    gateway.Payout
	suppliers *store.SupplierRegistry
	rfqs      *store.RFQRegistry
}

func newDeps() *deps {
	return &deps{
		messaging: gateway.NewMockMessaging(),
		ai:        gateway.NewMockTextAI(),
		esign:     gateway.NewMockESign(),
		escrow:    gateway.NewMockEscrow(),
		payout:    gateway.NewMockPayout(),
		suppliers: store.NewSupplierRegistry(),
		rfqs:      store.NewRFQRegistry(),
	}
}

func (d *deps) activities() *activities.Activities {
	log := slog.Default()
	return &activities.Activities{
		Messaging: d.messaging,
		Extractor: extract.New(d.ai, log),
		Drafter:   draft.New(d.ai, 15),
		ESign:     d.esign,
		Escrow:    d.escrow,
		Payout:    d.payout,
		Suppliers: d.suppliers,
		RFQs:      d.rfqs,
		Log:       log,
	}
}

func testParams() Params {
	return Params{
		ConfidenceThreshold: 0.7,
		TargetMarginPct:     15,
		ReplyDeadline:       48 * time.Hour,
		SignaturePollEvery:  15 * time.Minute,
		SignatureDeadline:   14 * 24 * time.Hour,
		CommissionPct:       10,
		Currency:            "USD",
		Broker:              model.Party{ID: "broker-platform", Name: "RFQ Broker", Contact: "deals@broker.example"},
		BrokerPayoutAccount: "acct_broker",
	}
}

func steelRFQ() model.RFQ {
	return model.RFQ{
		ID:           "rfq-100",
		BuyerID:      "buyer-1",
		BuyerContact: "buyer@corp.example",
		Framework:    model.FrameworkBuyDomestic,
		Requirements: model.Requirements{ProductType: "domestic steel plates", Quantity: 200},
		Timeline:     model.TimelineThreeMonths,
		Status:       model.RFQStatusDraft,
		CreatedAt:    time.Now().UTC(),
	}
}

func domestic(id, contact string) model.Supplier {
	return model.Supplier{
		ID:        id,
		Name:      "Supplier " + id,
		Country:   "US",
		Framework: model.FrameworkBuyDomestic,
		Products:  []string{"steel plates", "steel pipe"},
		Contact:   contact,
	}
}

type WorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) newEnv(d *deps) *testsuite.TestWorkflowEnvironment {
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DispatchRFQ)
	env.RegisterWorkflow(Negotiate)
	env.RegisterWorkflow(SettleContract)
	env.RegisterActivity(d.activities())
	return env
}
