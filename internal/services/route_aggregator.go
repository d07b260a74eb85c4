package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"
)

// ErrNoRoutesAvailable returned only when every eligible provider failed or
// none supports the requested chain pair
var ErrNoRoutesAvailable = errors.New("no routes available")

// RouteAggregator fans a route request out to all configured providers
// concurrently and collects the normalized results
type RouteAggregator struct {
	providers    []QuoteProvider
	queryTimeout time.Duration
}

// NewRouteAggregator creates an aggregator over the given providers
func NewRouteAggregator(providers []QuoteProvider, queryTimeout time.Duration) *RouteAggregator {
	if queryTimeout <= 0 {
		queryTimeout = 12 * time.Second
	}
	return &RouteAggregator{
		providers:    providers,
		queryTimeout: queryTimeout,
	}
}

// GetRoutes queries every provider supporting the chain pair in parallel.
// Each query runs under its own timeout and writes into its own result
// slot, so one provider's failure never affects the others. Fails with
// ErrNoRoutesAvailable only when zero providers returned a route.
func (a *RouteAggregator) GetRoutes(ctx context.Context, req *models.RouteRequest) ([]models.ProtocolRoute, error) {
	eligible := make([]QuoteProvider, 0, len(a.providers))
	for _, provider := range a.providers {
		if provider.SupportsChains(req.FromChainID, req.ToChainID) {
			eligible = append(eligible, provider)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no provider supports chain pair %d -> %d",
			ErrNoRoutesAvailable, req.FromChainID, req.ToChainID)
	}

	log.Printf("[RouteAggregator] Querying %d providers for %d -> %d, amount=%.6f %s",
		len(eligible), req.FromChainID, req.ToChainID, req.Amount, req.FromToken)

	// One result slot per provider; no shared mutable state during fan-out
	routes := make([]*models.ProtocolRoute, len(eligible))
	failures := make([]error, len(eligible))

	var wg sync.WaitGroup
	for i, provider := range eligible {
		wg.Add(1)
		go func(slot int, provider QuoteProvider) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, a.queryTimeout)
			defer cancel()

			start := time.Now()
			metrics.ProviderQuoteRequests.WithLabelValues(provider.Name()).Inc()

			route, err := provider.GetRoute(queryCtx, req)
			metrics.ProviderQuoteDuration.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				errType := "error"
				if errors.Is(err, context.DeadlineExceeded) {
					errType = "timeout"
				}
				metrics.ProviderQuoteFailures.WithLabelValues(provider.Name(), errType).Inc()
				log.Printf("[RouteAggregator] Provider %s failed (%s): %v", provider.Name(), errType, err)
				failures[slot] = fmt.Errorf("%s: %w", provider.Name(), err)
				return
			}
			routes[slot] = route
		}(i, provider)
	}
	wg.Wait()

	results := make([]models.ProtocolRoute, 0, len(eligible))
	for _, route := range routes {
		if route != nil {
			results = append(results, *route)
		}
	}

	if len(results) == 0 {
		err := ErrNoRoutesAvailable
		for _, failure := range failures {
			if failure != nil {
				err = fmt.Errorf("%w; %v", err, failure)
			}
		}
		return nil, err
	}

	log.Printf("[RouteAggregator] Collected %d/%d routes", len(results), len(eligible))
	return results, nil
}
