package exchange

import (
	"context"
	"fmt"
	"strings"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// Bitget fetches symbols from the v1 public API. Futures contracts
// carry a launch timestamp; announcements are published in UTC+8.
type Bitget struct {
	Client  *fetch.Client
	BaseURL string
}

func NewBitget(client *fetch.Client) *Bitget {
	return &Bitget{Client: client, BaseURL: "https://api.bitget.com"}
}

type bitgetSymbols struct {
	Data []struct {
		Symbol     string `json:"symbol"`
		BaseCoin   string `json:"baseCoin"`
		QuoteCoin  string `json:"quoteCoin"`
		Status     string `json:"status"`
		LaunchTime string `json:"launchTime"`
	} `json:"data"`
}

func (b *Bitget) Spot(ctx context.Context) (models.Snapshot, error) {
	var payload bitgetSymbols
	if err := b.Client.GetJSON(ctx, b.BaseURL+"/api/spot/v1/public/symbols", &payload); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data {
		if it.BaseCoin == "" || it.QuoteCoin == "" {
			continue
		}
		if it.Status != "" && it.Status != "online" {
			continue
		}
		pair := models.NewPair(it.BaseCoin, it.QuoteCoin)
		out[pair] = fmt.Sprintf("https://www.bitget.com/spot/%s%s", pair.Base, pair.Quote)
	}
	return out, nil
}

func (b *Bitget) Futures(ctx context.Context) (models.Snapshot, error) {
	var payload bitgetSymbols
	url := b.BaseURL + "/api/mix/v1/market/contracts?productType=umcbl"
	if err := b.Client.GetJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data {
		// Contract symbols look like BTCUSDT_UMCBL.
		name := strings.SplitN(it.Symbol, "_", 2)[0]
		base := strings.TrimSuffix(name, "USDT")
		if base == "" || base == name {
			continue
		}
		pair := models.NewPair(base, "USDT")
		out[pair] = fmt.Sprintf("https://www.bitget.com/futures/usdt/%sUSDT", pair.Base)
	}
	return out, nil
}

// ListingTime reads the futures launch timestamp. Spot symbol records
// carry no listing field.
func (b *Bitget) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	if market != models.MarketFutures {
		return models.TimeCandidate{}, false, nil
	}
	var payload bitgetSymbols
	url := b.BaseURL + "/api/mix/v1/market/contracts?productType=umcbl"
	if err := b.Client.GetJSON(ctx, url, &payload); err != nil {
		return models.TimeCandidate{}, false, err
	}
	want := pair.Base + pair.Quote + "_UMCBL"
	for _, it := range payload.Data {
		if !strings.EqualFold(it.Symbol, want) {
			continue
		}
		msec := atoi64(it.LaunchTime)
		if msec <= 0 {
			continue
		}
		return epochCandidate(msec, "UTC+8", 8*3600), true, nil
	}
	return models.TimeCandidate{}, false, nil
}

func atoi64(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}
