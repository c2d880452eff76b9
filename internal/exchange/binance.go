package exchange

import (
	"context"
	"fmt"
	"strings"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// Binance fetches tradable pairs from the Binance exchange-info
// endpoints. Futures symbols carry an onboard timestamp used as the
// structured time source. Binance publishes times in UTC.
type Binance struct {
	Client     *fetch.Client
	SpotURL    string
	FuturesURL string
}

func NewBinance(client *fetch.Client) *Binance {
	return &Binance{
		Client:     client,
		SpotURL:    "https://api.binance.com/api/v3/exchangeInfo",
		FuturesURL: "https://fapi.binance.com/fapi/v1/exchangeInfo",
	}
}

type binanceExchangeInfo struct {
	Symbols []struct {
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
		BaseAsset    string `json:"baseAsset"`
		QuoteAsset   string `json:"quoteAsset"`
		OnboardDate  int64  `json:"onboardDate"`
	} `json:"symbols"`
}

func (b *Binance) Spot(ctx context.Context) (models.Snapshot, error) {
	var info binanceExchangeInfo
	if err := b.Client.GetJSON(ctx, b.SpotURL, &info); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		pair := models.NewPair(s.BaseAsset, s.QuoteAsset)
		out[pair] = fmt.Sprintf("https://www.binance.com/en/trade/%s_%s", pair.Base, pair.Quote)
	}
	return out, nil
}

func (b *Binance) Futures(ctx context.Context) (models.Snapshot, error) {
	var info binanceExchangeInfo
	if err := b.Client.GetJSON(ctx, b.FuturesURL, &info); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.ContractType != "PERPETUAL" {
			continue
		}
		if s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		pair := models.NewPair(s.BaseAsset, s.QuoteAsset)
		out[pair] = fmt.Sprintf("https://www.binance.com/en/futures/%s%s", pair.Base, pair.Quote)
	}
	return out, nil
}

// ListingTime reads the futures onboard timestamp. Spot exchange info
// carries no listing field.
func (b *Binance) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	if market != models.MarketFutures {
		return models.TimeCandidate{}, false, nil
	}
	var info binanceExchangeInfo
	if err := b.Client.GetJSON(ctx, b.FuturesURL, &info); err != nil {
		return models.TimeCandidate{}, false, err
	}
	for _, s := range info.Symbols {
		if strings.EqualFold(s.BaseAsset, pair.Base) && strings.EqualFold(s.QuoteAsset, pair.Quote) && s.OnboardDate > 0 {
			return epochCandidate(s.OnboardDate, "UTC", 0), true, nil
		}
	}
	return models.TimeCandidate{}, false, nil
}
