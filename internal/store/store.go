// Package store holds the in-process registries backing the API and the
// mailbox poller. Durable entity storage lives outside this service; the
// registries are the read models the orchestrator needs at hand: the
// supplier pool the matcher scores and the RFQs whose status the
// workflows advance.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"rfqbroker/internal/model"
)

var ErrNotFound = errors.New("store: not found")

// SupplierRegistry is the read-side supplier pool, populated from the
// upstream directory (worker boot seed, admin sync endpoint).
type SupplierRegistry struct {
	mu        sync.RWMutex
	byID      map[string]model.Supplier
	byContact map[string]string // contact -> supplier ID
}

func NewSupplierRegistry() *SupplierRegistry {
	return &SupplierRegistry{
		byID:      make(map[string]model.Supplier),
		byContact: make(map[string]string),
	}
}

func (r *SupplierRegistry) Upsert(s model.Supplier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[s.ID]; ok && old.Contact != "" {
		delete(r.byContact, old.Contact)
	}
	s.UpdatedAt = time.Now().UTC()
	r.byID[s.ID] = s
	if s.Contact != "" {
		r.byContact[s.Contact] = s.ID
	}
}

func (r *SupplierRegistry) Get(id string) (model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return model.Supplier{}, ErrNotFound
	}
	return s, nil
}

// ListByFramework returns the candidate pool for one framework in a
// stable order so matching stays deterministic across calls.
func (r *SupplierRegistry) ListByFramework(fw model.Framework) []model.Supplier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Supplier, 0)
	for _, s := range r.byID {
		if s.Framework == fw {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByContact resolves an inbound sender address to a supplier.
func (r *SupplierRegistry) FindByContact(contact string) (model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byContact[contact]
	if !ok {
		return model.Supplier{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *SupplierRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// RFQRegistry tracks RFQs and their human-readable lifecycle status.
type RFQRegistry struct {
	mu   sync.RWMutex
	byID map[string]model.RFQ
}

func NewRFQRegistry() *RFQRegistry {
	return &RFQRegistry{byID: make(map[string]model.RFQ)}
}

func (r *RFQRegistry) Create(rfq model.RFQ) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rfq.ID] = rfq
}

func (r *RFQRegistry) Get(id string) (model.RFQ, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rfq, ok := r.byID[id]
	if !ok {
		return model.RFQ{}, ErrNotFound
	}
	return rfq, nil
}

// statusRank orders the RFQ lifecycle. Several negotiation threads for
// one RFQ advance the status concurrently, so transitions only ever move
// forward; a stale lower-rank update is a no-op, not an error. A closed
// RFQ outranks everything, including a late rejection.
var statusRank = map[model.RFQStatus]int{
	model.RFQStatusDraft:       0,
	model.RFQStatusSent:        1,
	model.RFQStatusResponded:   2,
	model.RFQStatusNegotiating: 3,
	model.RFQStatusRejected:    4,
	model.RFQStatusClosed:      5,
}

// SetStatus advances an RFQ's lifecycle. Backward and repeated
// transitions are ignored, so concurrent negotiation threads can report
// their outcomes in any order; a closed RFQ is immutable because nothing
// outranks it.
func (r *RFQRegistry) SetStatus(id string, status model.RFQStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rfq, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if statusRank[status] <= statusRank[rfq.Status] {
		return nil
	}
	rfq.Status = status
	rfq.UpdatedAt = time.Now().UTC()
	r.byID[id] = rfq
	return nil
}
