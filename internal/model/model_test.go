package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	for _, valid := range []string{"Buy", "Sell"} {
		got, err := ParseTransactionType(valid)
		require.NoError(t, err)
		assert.Equal(t, TransactionType(valid), got)
	}

	_, err := ParseTransactionType("buy")
	require.Error(t, err, "matching is case sensitive")
	assert.EqualError(t, err, `invalid transaction type "buy": choose either "Buy" or "Sell"`)
}

func TestParseYieldType(t *testing.T) {
	for _, valid := range []string{"dividend", "jcp", "rendimentos_de_clientes", "fracoes_de_acoes"} {
		got, err := ParseYieldType(valid)
		require.NoError(t, err)
		assert.Equal(t, YieldType(valid), got)
	}

	_, err := ParseYieldType("bonus")
	require.Error(t, err)
	assert.EqualError(t, err, `invalid yield type "bonus": choose either "dividend", "jcp", "rendimentos_de_clientes" or "fracoes_de_acoes"`)
}

func TestParseProduct(t *testing.T) {
	_, err := ParseProduct("bonds")
	require.Error(t, err)
	assert.EqualError(t, err, `invalid product type "bonds": choose either "stocks" or "yields"`)
}

func TestParseSink(t *testing.T) {
	for _, valid := range []string{"print", "csv", "xlsx", "database", "api"} {
		got, err := ParseSink(valid)
		require.NoError(t, err)
		assert.Equal(t, Sink(valid), got)
	}

	_, err := ParseSink("stdout")
	var invalidSink *InvalidSinkError
	require.ErrorAs(t, err, &invalidSink)
	assert.Equal(t, "stdout", invalidSink.Value)
}

func TestReportHeader(t *testing.T) {
	row := Row{}
	row.Add("stock", "AAA", RenderPlain)
	row.Add("total", "160", RenderPlain)
	report := Report{Name: "stocks_report", Rows: []Row{row}}

	assert.Equal(t, []string{"stock", "total"}, report.Header())
	assert.Nil(t, Report{}.Header())
	assert.True(t, Report{}.Empty())
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, time.March, 10, 15, 42, 7, 123, time.Local)
	got := DateOnly(in)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), got)
}
