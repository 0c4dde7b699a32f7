package products

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

const stockQueryTimeout = 30 * time.Second

// Stock aggregates a view by (category, product name). Concurrent requests
// for the same view share one query; a caller that goes away only stops
// waiting, the shared query keeps running for the others.
func (s *Service) Stock(ctx context.Context, view StockView) (StockSummary, error) {
	ch := s.stock.DoChan(string(view), func() (any, error) {
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stockQueryTimeout)
		defer cancel()
		return s.repo.Stock(queryCtx, view)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return StockSummary{}, fmt.Errorf("products: load stock: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return StockSummary{}, wrapErr(res.Err, "load stock")
	}

	groups := append([]StockGroup(nil), res.Val.([]StockGroup)...)
	summary := StockSummary{
		View:      view,
		Threshold: s.cfg.LowStockThreshold,
		Groups:    make([]StockGroup, 0, len(groups)),
	}
	for _, g := range groups {
		g.LowStock = g.Count <= s.cfg.LowStockThreshold
		summary.Total += g.Count
		summary.Groups = append(summary.Groups, g)
	}
	return summary, nil
}
