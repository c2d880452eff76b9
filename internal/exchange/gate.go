package exchange

import (
	"context"
	"fmt"
	"regexp"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// Gate fetches pairs from the Gate.io v4 API. Spot currency pairs
// carry buy/sell start epochs; announcements are published in UTC+8.
type Gate struct {
	Client  *fetch.Client
	BaseURL string
}

func NewGate(client *fetch.Client) *Gate {
	return &Gate{Client: client, BaseURL: "https://api.gateio.ws"}
}

type gateCurrencyPair struct {
	ID          string `json:"id"`
	Base        string `json:"base"`
	Quote       string `json:"quote"`
	TradeStatus string `json:"trade_status"`
	BuyStart    int64  `json:"buy_start"`
	SellStart   int64  `json:"sell_start"`
}

func (g *Gate) Spot(ctx context.Context) (models.Snapshot, error) {
	var pairs []gateCurrencyPair
	if err := g.Client.GetJSON(ctx, g.BaseURL+"/api/v4/spot/currency_pairs", &pairs); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range pairs {
		if it.Base == "" || it.Quote == "" {
			continue
		}
		if it.TradeStatus != "" && it.TradeStatus != "tradable" {
			continue
		}
		pair := models.NewPair(it.Base, it.Quote)
		out[pair] = fmt.Sprintf("https://www.gate.io/trade/%s_%s", pair.Base, pair.Quote)
	}
	return out, nil
}

var gateContractRe = regexp.MustCompile(`^([A-Z0-9]+)[_\-/]USDT$`)

func (g *Gate) Futures(ctx context.Context) (models.Snapshot, error) {
	var contracts []struct {
		Name string `json:"name"`
	}
	if err := g.Client.GetJSON(ctx, g.BaseURL+"/api/v4/futures/usdt/contracts", &contracts); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range contracts {
		m := gateContractRe.FindStringSubmatch(it.Name)
		if m == nil {
			continue
		}
		pair := models.NewPair(m[1], "USDT")
		out[pair] = fmt.Sprintf("https://www.gate.io/futures_trade/USDT/%s_USDT", pair.Base)
	}
	return out, nil
}

// ListingTime reads the spot buy/sell start epochs via a point lookup.
// Sell start is when trading actually opens; buy start is the earlier
// of the two phases and used as fallback.
func (g *Gate) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	if market != models.MarketSpot {
		return models.TimeCandidate{}, false, nil
	}
	var cp gateCurrencyPair
	url := fmt.Sprintf("%s/api/v4/spot/currency_pairs/%s_%s", g.BaseURL, pair.Base, pair.Quote)
	if err := g.Client.GetJSON(ctx, url, &cp); err != nil {
		return models.TimeCandidate{}, false, err
	}
	start := cp.SellStart
	if start <= 0 {
		start = cp.BuyStart
	}
	if start <= 0 {
		return models.TimeCandidate{}, false, nil
	}
	return epochCandidate(start*1000, "UTC+8", 8*3600), true, nil
}
