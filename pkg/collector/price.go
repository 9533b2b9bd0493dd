package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/platform/httpclient"
)

// PriceClient CoinGecko simple price API
type PriceClient struct {
	http    *httpclient.Client
	baseURL string
	logger  zerolog.Logger
}

// NewPriceClient baseURL like https://api.coingecko.com/api/v3
func NewPriceClient(baseURL string, client *httpclient.Client) *PriceClient {
	return &PriceClient{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "price_feed").Logger(),
	}
}

// FetchTokenPrice USD price of a CoinGecko token id; 0 with an error on failure
func (c *PriceClient) FetchTokenPrice(ctx context.Context, tokenID string) (float64, error) {
	tokenID = strings.ToLower(strings.TrimSpace(tokenID))
	if tokenID == "" {
		return 0, fmt.Errorf("token id is required")
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(tokenID))

	var body map[string]map[string]float64
	if err := c.http.GetJSON(ctx, endpoint, &body); err != nil {
		c.logger.Error().Err(err).Str("token", tokenID).Msg("Failed to fetch price")
		return 0, fmt.Errorf("fetch price for %s: %w", tokenID, err)
	}

	price, ok := body[tokenID]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceNotFound, tokenID)
	}

	c.logger.Info().Str("token", tokenID).Float64("usd", price).Msg("Fetched price")
	return price, nil
}
