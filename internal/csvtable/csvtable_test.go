package csvtable

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransactionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), TransactionsFilename)

	perf := d("46.67")
	txs := []model.Transaction{
		{
			Broker:     "broker1",
			Type:       model.Buy,
			Stock:      "AAA",
			Date:       model.DateOnly(mustDate(t, "2024-01-10")),
			Quantity:   10,
			Price:      d("10"),
			TotalPrice: d("100"),
		},
		{
			Broker:      "broker1",
			Type:        model.Sell,
			Stock:       "AAA",
			Date:        model.DateOnly(mustDate(t, "2024-03-10")),
			Quantity:    -5,
			Price:       d("-20"),
			TotalPrice:  d("-100"),
			Performance: &perf,
		},
	}

	require.NoError(t, AppendTransactions(path, txs))

	got, err := ImportTransactions(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, txs[0].Broker, got[0].Broker)
	assert.Equal(t, txs[0].Type, got[0].Type)
	assert.Equal(t, txs[0].Date, got[0].Date)
	assert.Equal(t, txs[0].Quantity, got[0].Quantity)
	assert.True(t, txs[0].TotalPrice.Equal(got[0].TotalPrice))
	assert.Nil(t, got[0].Performance, "buys carry no performance")

	assert.Equal(t, int64(-5), got[1].Quantity)
	require.NotNil(t, got[1].Performance)
	assert.True(t, perf.Equal(*got[1].Performance))
}

func TestYieldsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), YieldsFilename)

	yields := []model.Yield{
		{Broker: "broker1", Type: model.Dividend, Stock: "AAA", Date: model.DateOnly(mustDate(t, "2024-01-10")), Value: d("10.55")},
		{Broker: "broker2", Type: model.FracoesDeAcoes, Stock: "BBBB", Date: model.DateOnly(mustDate(t, "2024-02-11")), Value: d("0.31")},
	}

	require.NoError(t, AppendYields(path, yields))

	got, err := ImportYields(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.FracoesDeAcoes, got[1].Type)
	assert.True(t, yields[1].Value.Equal(got[1].Value))
}

func TestWriteRowsHeaderOnlyOnCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	header := []string{"a", "b"}

	require.NoError(t, WriteRows(path, header, [][]string{{"1", "2"}}))
	require.NoError(t, WriteRows(path, header, [][]string{{"3", "4"}}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n3;4\n", string(content))
}

func TestImportTransactionsRejectsBadType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := "broker;transaction_type;stock;date;quantity;price;total_price;performance\n" +
		"broker1;Hold;AAA;2024-01-10;10;10;100;\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ImportTransactions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "invalid transaction type")
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return parsed
}
