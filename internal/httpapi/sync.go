package httpapi

import (
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"rfqbroker/internal/model"
)

var allFrameworks = []model.Framework{
	model.FrameworkBuyDomestic,
	model.FrameworkCompostablePack,
	model.FrameworkTraceableOrigin,
}

type syncResult struct {
	Synced   int               `json:"synced"`
	PerPool  map[string]int    `json:"perPool"`
	Failures map[string]string `json:"failures,omitempty"`
	Total    int               `json:"total"`
}

// syncSuppliers pulls every framework pool from the directory provider
// concurrently and upserts into the local registry. A pool that fails to
// fetch is reported but does not block the others.
func (s *Server) syncSuppliers(w http.ResponseWriter, r *http.Request) {
	var (
		mu  sync.Mutex
		res = syncResult{PerPool: map[string]int{}, Failures: map[string]string{}}
	)

	g, ctx := errgroup.WithContext(r.Context())
	for _, fw := range allFrameworks {
		fw := fw
		g.Go(func() error {
			suppliers, err := s.directory.ListSuppliers(ctx, fw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures[string(fw)] = err.Error()
				return nil
			}
			for _, sup := range suppliers {
				s.suppliers.Upsert(sup)
			}
			res.PerPool[string(fw)] = len(suppliers)
			res.Synced += len(suppliers)
			return nil
		})
	}
	_ = g.Wait()

	res.Total = s.suppliers.Count()
	if len(res.Failures) == 0 {
		res.Failures = nil
	}

	s.log.Info("supplier sync", "synced", res.Synced, "total", res.Total, "failures", len(res.Failures))
	writeJSON(w, res)
}
