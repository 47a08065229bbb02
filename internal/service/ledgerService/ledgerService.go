package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/csvtable"
	"github.com/pbitts/investment-ledger/internal/externalApi"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/service"
	"github.com/pbitts/investment-ledger/internal/statistics"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	InsertTransaction(ctx context.Context, tx model.Transaction) error
	InsertYield(ctx context.Context, y model.Yield) error
	DropTransactions(ctx context.Context) error
	DropYields(ctx context.Context) error
	CostBasisByStock(ctx context.Context, threshold time.Time, broker string) ([]model.CostBasisRow, error)
	SoldTransactions(ctx context.Context, from, to time.Time, broker string) ([]model.Transaction, error)
	Yields(ctx context.Context, from, to time.Time, broker string) ([]model.Yield, error)
	AllTransactions(ctx context.Context) ([]model.Transaction, error)
	AllYields(ctx context.Context) ([]model.Yield, error)
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

type QuoteApi interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
}

// TransactionDraft is the user-entered transaction before signs and
// performance are applied.
type TransactionDraft struct {
	Broker     string
	Type       model.TransactionType
	Stock      string
	Date       time.Time
	Quantity   int64
	Price      decimal.Decimal
	TotalPrice decimal.Decimal
}

// YieldDraft is the user-entered yield event.
type YieldDraft struct {
	Broker string
	Type   model.YieldType
	Stock  string
	Date   time.Time
	Value  decimal.Decimal
}

type LedgerService struct {
	cfg      *config.Config
	repo     Repository
	cache    Cache
	quoteApi QuoteApi
}

func New(cfg *config.Config, repo Repository, cache Cache, quoteApi QuoteApi) *LedgerService {
	return &LedgerService{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		quoteApi: quoteApi,
	}
}

// AddStockTransaction records a buy or sell. Sells store negated
// quantity/price/total and a performance computed from the cost basis at
// entry time: quantity*price - pm*quantity, where pm is the running average
// cost per share for the broker.
func (s *LedgerService) AddStockTransaction(ctx context.Context, draft TransactionDraft) (tx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AddStockTransaction"

	slog.Debug("AddStockTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("draft", draft))
	defer func() {
		if err != nil {
			slog.Error("AddStockTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddStockTransaction finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	tx = model.Transaction{
		Broker:     draft.Broker,
		Type:       draft.Type,
		Stock:      draft.Stock,
		Date:       model.DateOnly(draft.Date),
		Quantity:   draft.Quantity,
		Price:      draft.Price,
		TotalPrice: draft.TotalPrice,
	}

	if draft.Type == model.Sell {
		performance, err := s.sellPerformance(ctx, draft)
		if err != nil {
			return model.Transaction{}, err
		}
		tx.Quantity = -draft.Quantity
		tx.Price = draft.Price.Neg()
		tx.TotalPrice = draft.TotalPrice.Neg()
		tx.Performance = &performance
	}

	path := filepath.Join(s.cfg.CSV.Dir, csvtable.TransactionsFilename)
	if err = csvtable.AppendTransactions(path, []model.Transaction{tx}); err != nil {
		return model.Transaction{}, fmt.Errorf("export transaction to csv: %w", err)
	}

	if err = s.repo.InsertTransaction(ctx, tx); err != nil {
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	return tx, nil
}

// sellPerformance derives the realized gain from the cost-basis aggregate
// evaluated at entry time. A stock with no open position for the broker
// yields ErrNoCostBasis.
func (s *LedgerService) sellPerformance(ctx context.Context, draft TransactionDraft) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.sellPerformance"

	costRows, err := s.repo.CostBasisByStock(ctx, model.DateOnly(time.Now()), draft.Broker)
	if err != nil {
		slog.Error("got error from repo.CostBasisByStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	for _, row := range costRows {
		if row.Stock != draft.Stock || row.Quantity == 0 {
			continue
		}
		pm := row.Total.Div(decimal.NewFromInt(row.Quantity))
		quantity := decimal.NewFromInt(draft.Quantity)
		return quantity.Mul(draft.Price).Sub(pm.Mul(quantity)), nil
	}

	return decimal.Decimal{}, service.ErrNoCostBasis
}

// AddYield records a yield event; the type is validated before this call.
func (s *LedgerService) AddYield(ctx context.Context, draft YieldDraft) (y model.Yield, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AddYield"

	slog.Debug("AddYield start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("draft", draft))
	defer func() {
		if err != nil {
			slog.Error("AddYield failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddYield finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	y = model.Yield{
		Broker: draft.Broker,
		Type:   draft.Type,
		Stock:  draft.Stock,
		Date:   model.DateOnly(draft.Date),
		Value:  draft.Value,
	}

	path := filepath.Join(s.cfg.CSV.Dir, csvtable.YieldsFilename)
	if err = csvtable.AppendYields(path, []model.Yield{y}); err != nil {
		return model.Yield{}, fmt.Errorf("export yield to csv: %w", err)
	}

	if err = s.repo.InsertYield(ctx, y); err != nil {
		return model.Yield{}, fmt.Errorf("insert yield: %w", err)
	}

	return y, nil
}

// GetStocksReport returns the IR stocks report: open positions with their
// totals and average price per share.
func (s *LedgerService) GetStocksReport(ctx context.Context, threshold time.Time, broker string) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetStocksReport"

	slog.Debug("GetStocksReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("broker", broker))

	costRows, err := s.repo.CostBasisByStock(ctx, model.DateOnly(threshold), broker)
	if err != nil {
		slog.Error("got error from repo.CostBasisByStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	return statistics.StocksReport(costRows), nil
}

// GetSoldReport returns the sold-position rows and their monthly performance
// rollup.
func (s *LedgerService) GetSoldReport(ctx context.Context, from, to time.Time, broker string) (rows, monthly model.Report, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetSoldReport"

	slog.Debug("GetSoldReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("broker", broker))

	sells, err := s.repo.SoldTransactions(ctx, model.DateOnly(from), model.DateOnly(to), broker)
	if err != nil {
		slog.Error("got error from repo.SoldTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, model.Report{}, err
	}

	rows, monthly = statistics.SoldReport(sells)
	return rows, monthly, nil
}

// GetYieldReport returns the yield tax report, sorted by yield type.
func (s *LedgerService) GetYieldReport(ctx context.Context, from, to time.Time, broker string) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetYieldReport"

	slog.Debug("GetYieldReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("broker", broker))

	yields, err := s.repo.Yields(ctx, model.DateOnly(from), model.DateOnly(to), broker)
	if err != nil {
		slog.Error("got error from repo.Yields", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	return statistics.YieldReport(yields), nil
}

// GetYieldSummary returns the monthly totals plus the per-stock breakdown
// for a portfolio. An unregistered portfolio yields ErrUnknownPortfolio,
// which callers treat as "nothing to report".
func (s *LedgerService) GetYieldSummary(ctx context.Context, from, to time.Time, broker, portfolio string) (general, perStock model.Report, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetYieldSummary"

	slog.Debug("GetYieldSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio))

	yields, err := s.repo.Yields(ctx, model.DateOnly(from), model.DateOnly(to), broker)
	if err != nil {
		slog.Error("got error from repo.Yields", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, model.Report{}, err
	}

	stocksInData := make([]string, 0, len(yields))
	for _, y := range yields {
		stocksInData = append(stocksInData, y.Stock)
	}

	selected, ok := statistics.SelectedStocks(s.cfg.Portfolios, portfolio, stocksInData)
	if !ok {
		slog.Info("portfolio does not exist in configuration", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio))
		return model.Report{}, model.Report{}, service.ErrUnknownPortfolio
	}

	slog.Info("selected stocks from portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio), slog.Any("stocks", selected))

	general, perStock = statistics.YieldSummary(yields, selected)
	return general, perStock, nil
}

// GetStocksSummary compares live market value against invested totals for a
// portfolio.
func (s *LedgerService) GetStocksSummary(ctx context.Context, threshold time.Time, broker, portfolio string) (general, perStock model.Report, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetStocksSummary"

	slog.Debug("GetStocksSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio))

	costRows, err := s.repo.CostBasisByStock(ctx, model.DateOnly(threshold), broker)
	if err != nil {
		slog.Error("got error from repo.CostBasisByStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, model.Report{}, err
	}

	stocksInData := make([]string, 0, len(costRows))
	for _, row := range costRows {
		stocksInData = append(stocksInData, row.Stock)
	}

	selected, ok := statistics.SelectedStocks(s.cfg.Portfolios, portfolio, stocksInData)
	if !ok {
		slog.Info("portfolio does not exist in configuration", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio))
		return model.Report{}, model.Report{}, service.ErrUnknownPortfolio
	}

	slog.Info("selected stocks from portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolio", portfolio), slog.Any("stocks", selected))

	selectedSet := make(map[string]bool, len(selected))
	for _, stock := range selected {
		selectedSet[stock] = true
	}

	prices := make(map[string]decimal.Decimal, len(costRows))
	for _, row := range costRows {
		if !selectedSet[row.Stock] {
			continue
		}
		quote, err := s.getQuote(ctx, row.Stock)
		if err != nil {
			return model.Report{}, model.Report{}, err
		}
		prices[row.Stock] = quote.Price
	}

	general, perStock = statistics.StocksSummary(costRows, selected, prices)
	return general, perStock, nil
}

// getQuote reads through the cache to the market API. An unknown ticker is
// not an error: it resolves to a zero price, matching the report semantics.
func (s *LedgerService) getQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.getQuote"

	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}

	slog.Debug("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))

	quote, err = s.quoteApi.GetQuote(ctx, ticker)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("ticker not found in quote api", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
			return model.Quote{Ticker: ticker}, nil
		}
		slog.Error("can't get quote from quote api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	if err := s.cache.SetQuote(ctx, quote); err != nil {
		slog.Warn("can't store quote in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return quote, nil
}

// ImportTransactionsFromCSV replaces the stocks table with the file's
// records: drop, then reinsert. The replace is not atomic by design.
func (s *LedgerService) ImportTransactionsFromCSV(ctx context.Context, path string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ImportTransactionsFromCSV"

	slog.Debug("ImportTransactionsFromCSV start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))
	defer func() {
		if err != nil {
			slog.Error("ImportTransactionsFromCSV failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ImportTransactionsFromCSV finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	txs, err := csvtable.ImportTransactions(path)
	if err != nil {
		return err
	}

	if err = s.repo.DropTransactions(ctx); err != nil {
		return err
	}

	for _, tx := range txs {
		if err = s.repo.InsertTransaction(ctx, tx); err != nil {
			return err
		}
	}

	slog.Info("transactions reimported", slog.String("rqID", rqID), slog.String("op", op), slog.Int("records", len(txs)))
	return nil
}

// ImportYieldsFromCSV replaces the yields table with the file's records.
func (s *LedgerService) ImportYieldsFromCSV(ctx context.Context, path string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ImportYieldsFromCSV"

	slog.Debug("ImportYieldsFromCSV start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))
	defer func() {
		if err != nil {
			slog.Error("ImportYieldsFromCSV failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ImportYieldsFromCSV finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	yields, err := csvtable.ImportYields(path)
	if err != nil {
		return err
	}

	if err = s.repo.DropYields(ctx); err != nil {
		return err
	}

	for _, y := range yields {
		if err = s.repo.InsertYield(ctx, y); err != nil {
			return err
		}
	}

	slog.Info("yields reimported", slog.String("rqID", rqID), slog.String("op", op), slog.Int("records", len(yields)))
	return nil
}

// ExportTransactionsToCSV writes every stored transaction to the file,
// appending when it already exists.
func (s *LedgerService) ExportTransactionsToCSV(ctx context.Context, filename string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ExportTransactionsToCSV"

	slog.Debug("ExportTransactionsToCSV start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	txs, err := s.repo.AllTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.AllTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return csvtable.AppendTransactions(filename, txs)
}

// ExportYieldsToCSV writes every stored yield to the file.
func (s *LedgerService) ExportYieldsToCSV(ctx context.Context, filename string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ExportYieldsToCSV"

	slog.Debug("ExportYieldsToCSV start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	yields, err := s.repo.AllYields(ctx)
	if err != nil {
		slog.Error("got error from repo.AllYields", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return csvtable.AppendYields(filename, yields)
}
