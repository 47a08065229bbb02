package quoteModel

// RawQuoteResponse mirrors the quote endpoint payload. regularMarketPrice is
// a pointer because the feed returns null for tickers without a session
// price.
type RawQuoteResponse struct {
	QuoteResponse QuoteResponse `json:"quoteResponse"`
}

type QuoteResponse struct {
	Result []RawQuote `json:"result"`
	Error  any        `json:"error"`
}

type RawQuote struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}
