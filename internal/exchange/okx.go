package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// OKX fetches instruments from the public v5 API. Instrument records
// carry a listTime field; announcements are published in UTC+8.
type OKX struct {
	Client  *fetch.Client
	BaseURL string
}

func NewOKX(client *fetch.Client) *OKX {
	return &OKX{Client: client, BaseURL: "https://www.okx.com"}
}

type okxInstruments struct {
	Data []struct {
		InstID   string `json:"instId"`
		State    string `json:"state"`
		ListTime string `json:"listTime"`
	} `json:"data"`
}

func (o *OKX) instruments(ctx context.Context, instType string) (*okxInstruments, error) {
	var payload okxInstruments
	url := fmt.Sprintf("%s/api/v5/public/instruments?instType=%s", o.BaseURL, instType)
	if err := o.Client.GetJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// splitInstID splits an OKX instrument id like BTC-USDT or
// BTC-USDT-SWAP into its legs.
func splitInstID(instID string) (models.Pair, bool) {
	parts := strings.Split(instID, "-")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return models.Pair{}, false
	}
	return models.NewPair(parts[0], parts[1]), true
}

func (o *OKX) Spot(ctx context.Context) (models.Snapshot, error) {
	payload, err := o.instruments(ctx, "SPOT")
	if err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data {
		if it.State != "live" {
			continue
		}
		pair, ok := splitInstID(it.InstID)
		if !ok {
			continue
		}
		out[pair] = fmt.Sprintf("https://www.okx.com/trade-spot/%s", strings.ToLower(it.InstID))
	}
	return out, nil
}

func (o *OKX) Futures(ctx context.Context) (models.Snapshot, error) {
	payload, err := o.instruments(ctx, "SWAP")
	if err != nil {
		return nil, err
	}
	out := models.Snapshot{}
	for _, it := range payload.Data {
		if it.State != "live" {
			continue
		}
		pair, ok := splitInstID(it.InstID)
		if !ok {
			continue
		}
		out[pair] = fmt.Sprintf("https://www.okx.com/trade-swap/%s", strings.ToLower(it.InstID))
	}
	return out, nil
}

// ListingTime reads the instrument listTime field.
func (o *OKX) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	instType := "SPOT"
	instID := pair.Base + "-" + pair.Quote
	if market == models.MarketFutures {
		instType = "SWAP"
		instID += "-SWAP"
	}
	var payload okxInstruments
	url := fmt.Sprintf("%s/api/v5/public/instruments?instType=%s&instId=%s", o.BaseURL, instType, instID)
	if err := o.Client.GetJSON(ctx, url, &payload); err != nil {
		return models.TimeCandidate{}, false, err
	}
	for _, it := range payload.Data {
		msec, err := strconv.ParseInt(it.ListTime, 10, 64)
		if err != nil || msec <= 0 {
			continue
		}
		return epochCandidate(msec, "UTC+8", 8*3600), true, nil
	}
	return models.TimeCandidate{}, false, nil
}
