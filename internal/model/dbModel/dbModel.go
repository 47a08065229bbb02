package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	Broker          string              `db:"broker"`
	TransactionType string              `db:"transaction_type"`
	Stock           string              `db:"stock"`
	Date            time.Time           `db:"date"`
	Quantity        int64               `db:"quantity"`
	Price           decimal.Decimal     `db:"price"`
	TotalPrice      decimal.Decimal     `db:"total_price"`
	Performance     decimal.NullDecimal `db:"performance"`
}

type Yield struct {
	Broker    string          `db:"broker"`
	YieldType string          `db:"yield_type"`
	Stock     string          `db:"stock"`
	Date      time.Time       `db:"date"`
	Value     decimal.Decimal `db:"value"`
}

type CostBasisRow struct {
	Stock    string          `db:"stock"`
	Total    decimal.Decimal `db:"total"`
	Quantity int64           `db:"quantity"`
}
