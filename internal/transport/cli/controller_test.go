package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/service/ledgerService"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	txDraft    *ledgerService.TransactionDraft
	yieldDraft *ledgerService.YieldDraft

	yieldReport model.Report

	importedPath string
	exportedFile string
}

func (f *fakeService) AddStockTransaction(_ context.Context, draft ledgerService.TransactionDraft) (model.Transaction, error) {
	f.txDraft = &draft
	return model.Transaction{
		Broker:     draft.Broker,
		Type:       draft.Type,
		Stock:      draft.Stock,
		Date:       draft.Date,
		Quantity:   draft.Quantity,
		Price:      draft.Price,
		TotalPrice: draft.TotalPrice,
	}, nil
}

func (f *fakeService) AddYield(_ context.Context, draft ledgerService.YieldDraft) (model.Yield, error) {
	f.yieldDraft = &draft
	return model.Yield{Broker: draft.Broker, Type: draft.Type, Stock: draft.Stock, Date: draft.Date, Value: draft.Value}, nil
}

func (f *fakeService) GetStocksReport(_ context.Context, _ time.Time, _ string) (model.Report, error) {
	return model.Report{}, nil
}

func (f *fakeService) GetSoldReport(_ context.Context, _, _ time.Time, _ string) (model.Report, model.Report, error) {
	return model.Report{}, model.Report{}, nil
}

func (f *fakeService) GetYieldReport(_ context.Context, _, _ time.Time, _ string) (model.Report, error) {
	return f.yieldReport, nil
}

func (f *fakeService) GetYieldSummary(_ context.Context, _, _ time.Time, _, _ string) (model.Report, model.Report, error) {
	return model.Report{}, model.Report{}, nil
}

func (f *fakeService) GetStocksSummary(_ context.Context, _ time.Time, _, _ string) (model.Report, model.Report, error) {
	return model.Report{}, model.Report{}, nil
}

func (f *fakeService) ImportTransactionsFromCSV(_ context.Context, path string) error {
	f.importedPath = path
	return nil
}

func (f *fakeService) ImportYieldsFromCSV(_ context.Context, path string) error {
	f.importedPath = path
	return nil
}

func (f *fakeService) ExportTransactionsToCSV(_ context.Context, filename string) error {
	f.exportedFile = filename
	return nil
}

func (f *fakeService) ExportYieldsToCSV(_ context.Context, filename string) error {
	f.exportedFile = filename
	return nil
}

type fakeExporter struct {
	sinks   []model.Sink
	reports []model.Report
}

func (f *fakeExporter) Export(_ context.Context, sink model.Sink, report model.Report, _ string) error {
	f.sinks = append(f.sinks, sink)
	f.reports = append(f.reports, report)
	return nil
}

func newController(input string, svc LedgerService, exp Exporter) (*Controller, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{Currency: config.Currency{Suffix: "reais"}}
	return New(cfg, svc, exp, strings.NewReader(input), out), out
}

func TestHandleAddStockTransaction(t *testing.T) {
	svc := &fakeService{}
	// stock, broker, date, type, quantity, price, total
	input := "AAA\nbroker1\n2024-01-10\nBuy\n10\n10\n100\n"
	c, out := newController(input, svc, &fakeExporter{})

	require.NoError(t, c.Handle(context.Background(), OpAddTransaction, model.ProductStocks))

	require.NotNil(t, svc.txDraft)
	assert.Equal(t, "AAA", svc.txDraft.Stock)
	assert.Equal(t, "broker1", svc.txDraft.Broker)
	assert.Equal(t, model.Buy, svc.txDraft.Type)
	assert.Equal(t, int64(10), svc.txDraft.Quantity)
	assert.True(t, svc.txDraft.TotalPrice.Equal(decimal.NewFromInt(100)))
	assert.Contains(t, out.String(), "Transaction recorded")
}

func TestHandleAddStockTransactionRejectsBadType(t *testing.T) {
	svc := &fakeService{}
	input := "AAA\nbroker1\n2024-01-10\nHold\n"
	c, _ := newController(input, svc, &fakeExporter{})

	err := c.Handle(context.Background(), OpAddTransaction, model.ProductStocks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transaction type")
	assert.Nil(t, svc.txDraft, "nothing reaches the service")
}

func TestHandleAddYield(t *testing.T) {
	svc := &fakeService{}
	// broker, type, stock, date (default), value
	input := "broker1\ndividend\nAAA\n\n10.55\n"
	c, _ := newController(input, svc, &fakeExporter{})

	require.NoError(t, c.Handle(context.Background(), OpAddTransaction, model.ProductYields))

	require.NotNil(t, svc.yieldDraft)
	assert.Equal(t, model.Dividend, svc.yieldDraft.Type)
	assert.Equal(t, model.DateOnly(time.Now()), svc.yieldDraft.Date, "empty date falls back to today")
}

func TestHandleYieldReportRoutesToSink(t *testing.T) {
	row := model.Row{}
	row.Add("stock", "AAA", model.RenderPlain)
	svc := &fakeService{yieldReport: model.Report{Name: "yield_report", Rows: []model.Row{row}}}
	exp := &fakeExporter{}

	// from (default), to (default), broker, sink
	input := "\n\nbroker1\nprint\n"
	c, _ := newController(input, svc, exp)

	require.NoError(t, c.Handle(context.Background(), OpGetReport, model.ProductYields))

	require.Len(t, exp.sinks, 1)
	assert.Equal(t, model.SinkPrint, exp.sinks[0])
	assert.Equal(t, "yield_report", exp.reports[0].Name)
}

func TestHandleEmptyReportSkipsSinkPrompt(t *testing.T) {
	svc := &fakeService{yieldReport: model.Report{Name: "yield_report"}}
	exp := &fakeExporter{}

	input := "\n\nbroker1\n"
	c, out := newController(input, svc, exp)

	require.NoError(t, c.Handle(context.Background(), OpGetReport, model.ProductYields))
	assert.Empty(t, exp.sinks)
	assert.Contains(t, out.String(), "No rows for yield_report")
}

func TestHandleUpdateFromCSV(t *testing.T) {
	svc := &fakeService{}
	c, _ := newController("records.csv\n", svc, &fakeExporter{})

	require.NoError(t, c.Handle(context.Background(), OpUpdateFromCSV, model.ProductYields))
	assert.Equal(t, "records.csv", svc.importedPath)
}

func TestHandleInvalidOperation(t *testing.T) {
	c, _ := newController("", &fakeService{}, &fakeExporter{})

	err := c.Handle(context.Background(), "explode", model.ProductStocks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operation")
}
