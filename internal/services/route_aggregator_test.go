package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bridgeguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripted QuoteProvider for aggregator tests
type fakeProvider struct {
	name     string
	supports bool
	route    *models.ProtocolRoute
	err      error
	delay    time.Duration
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) SupportsChains(_, _ int) bool { return p.supports }

func (p *fakeProvider) GetRoute(ctx context.Context, _ *models.RouteRequest) (*models.ProtocolRoute, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.route, nil
}

func testRouteRequest() *models.RouteRequest {
	return &models.RouteRequest{
		FromChainID: 1,
		ToChainID:   8453,
		FromToken:   "USDC",
		ToToken:     "USDC",
		Amount:      10,
		UserAddress: "0x00000000000000000000000000000000000000aa",
	}
}

func TestGetRoutesAllSucceed(t *testing.T) {
	aggregator := NewRouteAggregator([]QuoteProvider{
		&fakeProvider{name: "lifi", supports: true, route: &models.ProtocolRoute{Protocol: "lifi"}},
		&fakeProvider{name: "across", supports: true, route: &models.ProtocolRoute{Protocol: "across"}},
	}, time.Second)

	routes, err := aggregator.GetRoutes(context.Background(), testRouteRequest())
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestGetRoutesPartialFailureIsNotAnError(t *testing.T) {
	aggregator := NewRouteAggregator([]QuoteProvider{
		&fakeProvider{name: "lifi", supports: true, err: errors.New("upstream 500")},
		&fakeProvider{name: "across", supports: true, route: &models.ProtocolRoute{Protocol: "across"}},
	}, time.Second)

	routes, err := aggregator.GetRoutes(context.Background(), testRouteRequest())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "across", routes[0].Protocol)
}

func TestGetRoutesAllFail(t *testing.T) {
	aggregator := NewRouteAggregator([]QuoteProvider{
		&fakeProvider{name: "lifi", supports: true, err: errors.New("upstream 500")},
		&fakeProvider{name: "across", supports: true, err: errors.New("rate limited")},
	}, time.Second)

	_, err := aggregator.GetRoutes(context.Background(), testRouteRequest())
	require.ErrorIs(t, err, ErrNoRoutesAvailable)
	// Per-provider causes survive in the wrapped error
	assert.Contains(t, err.Error(), "lifi")
	assert.Contains(t, err.Error(), "across")
}

func TestGetRoutesNoEligibleProviders(t *testing.T) {
	aggregator := NewRouteAggregator([]QuoteProvider{
		&fakeProvider{name: "lifi", supports: false},
	}, time.Second)

	_, err := aggregator.GetRoutes(context.Background(), testRouteRequest())
	require.ErrorIs(t, err, ErrNoRoutesAvailable)
	assert.Contains(t, err.Error(), "chain pair 1 -> 8453")
}

func TestGetRoutesSlowProviderTimesOut(t *testing.T) {
	aggregator := NewRouteAggregator([]QuoteProvider{
		&fakeProvider{name: "lifi", supports: true, delay: 500 * time.Millisecond, route: &models.ProtocolRoute{Protocol: "lifi"}},
		&fakeProvider{name: "across", supports: true, route: &models.ProtocolRoute{Protocol: "across"}},
	}, 50*time.Millisecond)

	routes, err := aggregator.GetRoutes(context.Background(), testRouteRequest())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "across", routes[0].Protocol)
}
