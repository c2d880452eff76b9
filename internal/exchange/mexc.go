package exchange

import (
	"context"
	"fmt"
	"strings"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// MEXC fetches spot pairs from the v3 exchange info and futures
// contracts from the contract API. Contract records carry a first-open
// timestamp; announcements are published in UTC+8.
type MEXC struct {
	Client      *fetch.Client
	SpotURL     string
	ContractURL string
}

func NewMEXC(client *fetch.Client) *MEXC {
	return &MEXC{
		Client:      client,
		SpotURL:     "https://api.mexc.com/api/v3/exchangeInfo",
		ContractURL: "https://contract.mexc.com/api/v1/contract/detail",
	}
}

type mexcExchangeInfo struct {
	Symbols []struct {
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

type mexcContracts struct {
	Data []struct {
		Symbol        string `json:"symbol"`
		State         int    `json:"state"`
		FirstOpenTime int64  `json:"firstOpenTime"`
	} `json:"data"`
}

func (m *MEXC) Spot(ctx context.Context) (models.Snapshot, error) {
	var info mexcExchangeInfo
	if err := m.Client.GetJSON(ctx, m.SpotURL, &info); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, s := range info.Symbols {
		// Status has been seen as "TRADING", "ENABLED", and the code
		// "1" across API revisions.
		st := s.Status
		if st != "TRADING" && st != "1" && st != "ENABLED" {
			continue
		}
		if s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		pair := models.NewPair(s.BaseAsset, s.QuoteAsset)
		out[pair] = fmt.Sprintf("https://www.mexc.com/exchange/%s_%s", pair.Base, pair.Quote)
	}
	return out, nil
}

func (m *MEXC) Futures(ctx context.Context) (models.Snapshot, error) {
	var payload mexcContracts
	if err := m.Client.GetJSON(ctx, m.ContractURL, &payload); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data {
		parts := strings.SplitN(it.Symbol, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		pair := models.NewPair(parts[0], parts[1])
		out[pair] = fmt.Sprintf("https://futures.mexc.com/exchange/%s_%s", pair.Base, pair.Quote)
	}
	return out, nil
}

// ListingTime reads the futures first-open timestamp. The spot
// exchange info carries no listing field.
func (m *MEXC) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	if market != models.MarketFutures {
		return models.TimeCandidate{}, false, nil
	}
	var payload mexcContracts
	url := fmt.Sprintf("%s?symbol=%s_%s", m.ContractURL, pair.Base, pair.Quote)
	if err := m.Client.GetJSON(ctx, url, &payload); err != nil {
		return models.TimeCandidate{}, false, err
	}
	for _, it := range payload.Data {
		if it.FirstOpenTime <= 0 {
			continue
		}
		return epochCandidate(it.FirstOpenTime, "UTC+8", 8*3600), true, nil
	}
	return models.TimeCandidate{}, false, nil
}
