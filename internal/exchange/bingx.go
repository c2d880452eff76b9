package exchange

import (
	"context"
	"fmt"
	"strings"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// BingX fetches spot symbols from the open API. Symbol names come in
// several shapes (BTC-USDT, BTC_USDT, BTCUSDT) depending on the
// endpoint revision.
type BingX struct {
	Client  *fetch.Client
	SpotURL string
}

func NewBingX(client *fetch.Client) *BingX {
	return &BingX{
		Client:  client,
		SpotURL: "https://open-api.bingx.com/openApi/spot/v1/common/symbols",
	}
}

type bingxSymbols struct {
	Data struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status int    `json:"status"`
		} `json:"symbols"`
	} `json:"data"`
}

// splitBingXSymbol normalizes the symbol shapes BingX has shipped.
func splitBingXSymbol(sym string) (models.Pair, bool) {
	for _, sep := range []string{"-", "_", "/"} {
		if parts := strings.SplitN(sym, sep, 2); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return models.NewPair(parts[0], parts[1]), true
		}
	}
	up := strings.ToUpper(sym)
	if base := strings.TrimSuffix(up, "USDT"); base != up && base != "" {
		return models.NewPair(base, "USDT"), true
	}
	return models.Pair{}, false
}

func (b *BingX) Spot(ctx context.Context) (models.Snapshot, error) {
	var payload bingxSymbols
	if err := b.Client.GetJSON(ctx, b.SpotURL, &payload); err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data.Symbols {
		pair, ok := splitBingXSymbol(it.Symbol)
		if !ok {
			continue
		}
		out[pair] = fmt.Sprintf("https://bingx.com/en-us/spot/%s_%s", pair.Base, pair.Quote)
	}
	return out, nil
}
