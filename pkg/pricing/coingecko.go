package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/pkg/cache"
)

const baseURL = "https://api.coingecko.com/api/v3"

// CoinGecko quotes fiat prices for supported tokens. Responses are cached so
// bursts of wallet reads do not burn through the public rate limit.
type CoinGecko struct {
	client *resty.Client
	cache  *cache.Cache
}

func NewCoinGecko(client *resty.Client) *CoinGecko {
	return &CoinGecko{client: client, cache: cache.New(10 * time.Minute)}
}

// Price returns one token's price in the given fiat currency, e.g. ("bitcoin", "usd").
func (c *CoinGecko) Price(ctx context.Context, coinGeckoID, currency string) (decimal.Decimal, error) {
	key := coinGeckoID + "-" + currency
	if cached, ok := c.cache.Get(key); ok {
		return decimal.NewFromString(cached)
	}

	var quotes map[string]map[string]decimal.Decimal
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           coinGeckoID,
			"vs_currencies": currency,
		}).
		SetResult(&quotes).
		Get(fmt.Sprintf("%s/simple/price", baseURL))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "coingecko price")
	}
	if resp.IsError() {
		return decimal.Zero, errors.Errorf("coingecko price: %s", resp.Status())
	}

	price, ok := quotes[coinGeckoID][currency]
	if !ok {
		return decimal.Zero, errors.Errorf("coingecko price: no quote for %s/%s", coinGeckoID, currency)
	}

	c.cache.Set(key, price.String())
	return price, nil
}
