package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Product string

const (
	ProductStocks Product = "stocks"
	ProductYields Product = "yields"
)

func ParseProduct(s string) (Product, error) {
	switch Product(s) {
	case ProductStocks, ProductYields:
		return Product(s), nil
	}
	return "", fmt.Errorf(`invalid product type %q: choose either "stocks" or "yields"`, s)
}

type TransactionType string

const (
	Buy  TransactionType = "Buy"
	Sell TransactionType = "Sell"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Buy, Sell:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf(`invalid transaction type %q: choose either "Buy" or "Sell"`, s)
}

type YieldType string

const (
	Dividend              YieldType = "dividend"
	JCP                   YieldType = "jcp"
	RendimentosDeClientes YieldType = "rendimentos_de_clientes"
	FracoesDeAcoes        YieldType = "fracoes_de_acoes"
)

// YieldTypes lists the valid categories in the order reports break them down.
var YieldTypes = []YieldType{Dividend, JCP, RendimentosDeClientes, FracoesDeAcoes}

func ParseYieldType(s string) (YieldType, error) {
	switch YieldType(s) {
	case Dividend, JCP, RendimentosDeClientes, FracoesDeAcoes:
		return YieldType(s), nil
	}
	return "", fmt.Errorf(`invalid yield type %q: choose either "dividend", "jcp", "rendimentos_de_clientes" or "fracoes_de_acoes"`, s)
}

// Transaction is a single buy or sell leg. Quantity, Price and TotalPrice are
// stored positive for Buy and negative for Sell; Performance is the realized
// gain computed at entry time and is set only on Sell.
type Transaction struct {
	Broker      string
	Type        TransactionType
	Stock       string
	Date        time.Time
	Quantity    int64
	Price       decimal.Decimal
	TotalPrice  decimal.Decimal
	Performance *decimal.Decimal
}

// Yield is a non-trading distribution received for holding a stock.
// Value is always positive.
type Yield struct {
	Broker string
	Type   YieldType
	Stock  string
	Date   time.Time
	Value  decimal.Decimal
}

// CostBasisRow is one group of the store aggregation: signed sums of
// total_price and quantity per stock, so prior sells reduce the running
// position.
type CostBasisRow struct {
	Stock    string
	Total    decimal.Decimal
	Quantity int64
}

// Quote is a live market price for a ticker. A zero price means the market
// feed had no usable quote.
type Quote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
}

// DateOnly normalizes t to a calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
