package quoteApi

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/externalApi"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/model/quoteModel"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/shopspring/decimal"
)

// QuoteApi looks up live market prices. Tickers are suffixed with the
// configured exchange suffix before the request (EGIE3F -> EGIE3F.SA).
type QuoteApi struct {
	client       *resty.Client
	tickerSuffix string
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client, tickerSuffix: cfg.API.QuoteApi.TickerSuffix}
}

func (a *QuoteApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v7/finance/quote"
	params := map[string]string{
		"symbols": ticker + a.tickerSuffix,
		"fields":  "symbol,regularMarketPrice",
	}

	slog.Debug("start QuoteApi.GetQuote request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		SetContext(ctx).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	rawQuoteResponse := quoteModel.RawQuoteResponse{}
	err = json.Unmarshal(resp.Body(), &rawQuoteResponse)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawQuoteResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	quote, err := a.parseRawQuoteResponse(ticker, rawQuoteResponse)
	if err != nil {
		return model.Quote{}, err
	}

	slog.Debug("QuoteApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return quote, nil
}

func (a *QuoteApi) parseRawQuoteResponse(ticker string, raw quoteModel.RawQuoteResponse) (model.Quote, error) {
	if len(raw.QuoteResponse.Result) == 0 {
		return model.Quote{}, externalApi.ErrNotFound
	}

	rawQuote := raw.QuoteResponse.Result[0]

	quote := model.Quote{Ticker: ticker}
	// a null session price means "no quote"; callers treat it as zero
	if rawQuote.RegularMarketPrice != nil {
		quote.Price = decimal.NewFromFloat(*rawQuote.RegularMarketPrice)
	}

	return quote, nil
}
