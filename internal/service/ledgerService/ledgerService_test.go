package ledgerService

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/csvtable"
	"github.com/pbitts/investment-ledger/internal/externalApi"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	costRows []model.CostBasisRow
	sells    []model.Transaction
	yields   []model.Yield

	insertedTxs    []model.Transaction
	insertedYields []model.Yield
	txsDropped     bool
	yieldsDropped  bool
}

func (f *fakeRepo) InsertTransaction(_ context.Context, tx model.Transaction) error {
	f.insertedTxs = append(f.insertedTxs, tx)
	return nil
}

func (f *fakeRepo) InsertYield(_ context.Context, y model.Yield) error {
	f.insertedYields = append(f.insertedYields, y)
	return nil
}

func (f *fakeRepo) DropTransactions(_ context.Context) error {
	f.txsDropped = true
	return nil
}

func (f *fakeRepo) DropYields(_ context.Context) error {
	f.yieldsDropped = true
	return nil
}

func (f *fakeRepo) CostBasisByStock(_ context.Context, _ time.Time, _ string) ([]model.CostBasisRow, error) {
	return f.costRows, nil
}

func (f *fakeRepo) SoldTransactions(_ context.Context, _, _ time.Time, _ string) ([]model.Transaction, error) {
	return f.sells, nil
}

func (f *fakeRepo) Yields(_ context.Context, _, _ time.Time, _ string) ([]model.Yield, error) {
	return f.yields, nil
}

func (f *fakeRepo) AllTransactions(_ context.Context) ([]model.Transaction, error) {
	return f.sells, nil
}

func (f *fakeRepo) AllYields(_ context.Context) ([]model.Yield, error) {
	return f.yields, nil
}

type fakeCache struct {
	quotes map[string]model.Quote
	stored []model.Quote
}

func (f *fakeCache) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	if q, ok := f.quotes[ticker]; ok {
		return q, nil
	}
	return model.Quote{}, errors.New("cache miss")
}

func (f *fakeCache) SetQuote(_ context.Context, quote model.Quote) error {
	f.stored = append(f.stored, quote)
	return nil
}

type fakeQuoteApi struct {
	quotes map[string]model.Quote
}

func (f *fakeQuoteApi) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	if q, ok := f.quotes[ticker]; ok {
		return q, nil
	}
	return model.Quote{}, externalApi.ErrNotFound
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		CSV: config.CSV{Dir: t.TempDir()},
		Portfolios: config.PortfolioMap{
			"All":  {"*"},
			"Main": {"AAA"},
		},
	}
}

func TestAddStockTransactionBuy(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	tx, err := srv.AddStockTransaction(context.Background(), TransactionDraft{
		Broker:     "broker1",
		Type:       model.Buy,
		Stock:      "AAA",
		Date:       time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   10,
		Price:      d("10"),
		TotalPrice: d("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), tx.Quantity)
	assert.True(t, tx.TotalPrice.Equal(d("100")))
	assert.Nil(t, tx.Performance)

	require.Len(t, repo.insertedTxs, 1)

	// record is mirrored to the csv file
	got, err := csvtable.ImportTransactions(filepath.Join(cfg.CSV.Dir, csvtable.TransactionsFilename))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AAA", got[0].Stock)
}

func TestAddStockTransactionSell(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{costRows: []model.CostBasisRow{{Stock: "AAA", Total: d("160"), Quantity: 15}}}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	tx, err := srv.AddStockTransaction(context.Background(), TransactionDraft{
		Broker:     "broker1",
		Type:       model.Sell,
		Stock:      "AAA",
		Date:       time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   5,
		Price:      d("20"),
		TotalPrice: d("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(-5), tx.Quantity, "sell stores negated quantity")
	assert.True(t, tx.Price.Equal(d("-20")))
	assert.True(t, tx.TotalPrice.Equal(d("-100")))

	// 5*20 - (160/15)*5
	require.NotNil(t, tx.Performance)
	assert.Equal(t, "46.67", tx.Performance.Round(2).String())
}

func TestAddStockTransactionSellWithoutCostBasis(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{costRows: []model.CostBasisRow{
		{Stock: "BBBB", Total: d("50"), Quantity: 5},
		{Stock: "AAA", Total: d("0"), Quantity: 0},
	}}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	_, err := srv.AddStockTransaction(context.Background(), TransactionDraft{
		Broker:     "broker1",
		Type:       model.Sell,
		Stock:      "AAA",
		Date:       time.Now(),
		Quantity:   5,
		Price:      d("20"),
		TotalPrice: d("100"),
	})
	require.ErrorIs(t, err, service.ErrNoCostBasis)

	assert.Empty(t, repo.insertedTxs, "nothing is written on a rejected sell")
	_, statErr := os.Stat(filepath.Join(cfg.CSV.Dir, csvtable.TransactionsFilename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAddYield(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	y, err := srv.AddYield(context.Background(), YieldDraft{
		Broker: "broker1",
		Type:   model.Dividend,
		Stock:  "AAA",
		Date:   time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		Value:  d("10.55"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.Dividend, y.Type)
	require.Len(t, repo.insertedYields, 1)
}

func TestGetStocksSummaryQuoteFallsBackToApi(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{costRows: []model.CostBasisRow{{Stock: "AAA", Total: d("100"), Quantity: 10}}}
	cache := &fakeCache{}
	api := &fakeQuoteApi{quotes: map[string]model.Quote{"AAA": {Ticker: "AAA", Price: d("11.24")}}}
	srv := New(cfg, repo, cache, api)

	general, perStock, err := srv.GetStocksSummary(context.Background(), time.Now(), "broker1", "Main")
	require.NoError(t, err)

	require.Len(t, general.Rows, 1)
	assert.Equal(t, "112.4", general.Rows[0].Get("current_total_value").(decimal.Decimal).String())
	require.Len(t, perStock.Rows, 1)

	// a fetched quote lands in the cache
	require.Len(t, cache.stored, 1)
	assert.Equal(t, "AAA", cache.stored[0].Ticker)
}

func TestGetStocksSummaryUnknownTickerCountsAsZero(t *testing.T) {
	cfg := testConfig(t)
	repo := &fakeRepo{costRows: []model.CostBasisRow{{Stock: "AAA", Total: d("100"), Quantity: 10}}}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	general, _, err := srv.GetStocksSummary(context.Background(), time.Now(), "broker1", "Main")
	require.NoError(t, err)
	assert.Equal(t, "0", general.Rows[0].Get("current_total_value").(decimal.Decimal).String())
}

func TestGetYieldSummaryUnknownPortfolio(t *testing.T) {
	cfg := testConfig(t)
	srv := New(cfg, &fakeRepo{}, &fakeCache{}, &fakeQuoteApi{})

	_, _, err := srv.GetYieldSummary(context.Background(), time.Now(), time.Now(), "broker1", "Nope")
	require.ErrorIs(t, err, service.ErrUnknownPortfolio)
}

func TestImportTransactionsFromCSVReplacesTable(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.CSV.Dir, "import.csv")
	require.NoError(t, csvtable.AppendTransactions(path, []model.Transaction{
		{Broker: "broker1", Type: model.Buy, Stock: "AAA", Date: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), Quantity: 10, Price: d("10"), TotalPrice: d("100")},
	}))

	repo := &fakeRepo{}
	srv := New(cfg, repo, &fakeCache{}, &fakeQuoteApi{})

	require.NoError(t, srv.ImportTransactionsFromCSV(context.Background(), path))
	assert.True(t, repo.txsDropped, "the table is truncated before the reinsert")
	require.Len(t, repo.insertedTxs, 1)
	assert.Equal(t, "AAA", repo.insertedTxs[0].Stock)
}
