// Package cli implements the interactive operation flows: it collects the
// remaining inputs with console prompts, calls the service and routes every
// report payload through the sink dispatcher.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/service"
	"github.com/pbitts/investment-ledger/internal/service/ledgerService"
	"github.com/shopspring/decimal"
)

const (
	OpAddTransaction = "add_transaction"
	OpGetReport      = "get_report"
	OpGetStatistics  = "get_statistics"
	OpUpdateFromCSV  = "update_from_csv"
	OpGetCSV         = "get_csv"
)

// Operations lists the valid -o values in help order.
var Operations = []string{OpAddTransaction, OpGetReport, OpGetStatistics, OpUpdateFromCSV, OpGetCSV}

type LedgerService interface {
	AddStockTransaction(ctx context.Context, draft ledgerService.TransactionDraft) (model.Transaction, error)
	AddYield(ctx context.Context, draft ledgerService.YieldDraft) (model.Yield, error)
	GetStocksReport(ctx context.Context, threshold time.Time, broker string) (model.Report, error)
	GetSoldReport(ctx context.Context, from, to time.Time, broker string) (rows, monthly model.Report, err error)
	GetYieldReport(ctx context.Context, from, to time.Time, broker string) (model.Report, error)
	GetYieldSummary(ctx context.Context, from, to time.Time, broker, portfolio string) (general, perStock model.Report, err error)
	GetStocksSummary(ctx context.Context, threshold time.Time, broker, portfolio string) (general, perStock model.Report, err error)
	ImportTransactionsFromCSV(ctx context.Context, path string) error
	ImportYieldsFromCSV(ctx context.Context, path string) error
	ExportTransactionsToCSV(ctx context.Context, filename string) error
	ExportYieldsToCSV(ctx context.Context, filename string) error
}

type Exporter interface {
	Export(ctx context.Context, sink model.Sink, report model.Report, filename string) error
}

type Controller struct {
	cfg      *config.Config
	service  LedgerService
	exporter Exporter
	in       *bufio.Scanner
	out      io.Writer
}

func New(cfg *config.Config, svc LedgerService, exporter Exporter, in io.Reader, out io.Writer) *Controller {
	return &Controller{
		cfg:      cfg,
		service:  svc,
		exporter: exporter,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Handle dispatches one operation x product invocation.
func (c *Controller) Handle(ctx context.Context, operation string, product model.Product) error {
	switch operation {
	case OpAddTransaction:
		if product == model.ProductStocks {
			return c.addStockTransaction(ctx)
		}
		return c.addYield(ctx)
	case OpGetReport:
		if product == model.ProductStocks {
			return c.stocksReport(ctx)
		}
		return c.yieldReport(ctx)
	case OpGetStatistics:
		if product == model.ProductStocks {
			return c.stocksStatistics(ctx)
		}
		return c.yieldStatistics(ctx)
	case OpUpdateFromCSV:
		path, err := c.prompt("CSV file to import", "")
		if err != nil {
			return err
		}
		if product == model.ProductStocks {
			return c.service.ImportTransactionsFromCSV(ctx, path)
		}
		return c.service.ImportYieldsFromCSV(ctx, path)
	case OpGetCSV:
		filename, err := c.prompt("Export to filename", "")
		if err != nil {
			return err
		}
		if product == model.ProductStocks {
			return c.service.ExportTransactionsToCSV(ctx, filename)
		}
		return c.service.ExportYieldsToCSV(ctx, filename)
	}
	return fmt.Errorf("invalid operation %q: choose %s", operation, strings.Join(Operations, ", "))
}

func (c *Controller) addStockTransaction(ctx context.Context) error {
	stock, err := c.prompt("Stock", "")
	if err != nil {
		return err
	}
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}
	date, err := c.promptDate("Date (YYYY-MM-DD)", time.Now())
	if err != nil {
		return err
	}
	typeStr, err := c.prompt("Transaction type (Buy or Sell)", "")
	if err != nil {
		return err
	}
	txType, err := model.ParseTransactionType(typeStr)
	if err != nil {
		return err
	}
	quantity, err := c.promptInt("Quantity")
	if err != nil {
		return err
	}
	price, err := c.promptDecimal("Price per share")
	if err != nil {
		return err
	}
	totalPrice, err := c.promptDecimal("Total price")
	if err != nil {
		return err
	}

	tx, err := c.service.AddStockTransaction(ctx, ledgerService.TransactionDraft{
		Broker:     broker,
		Type:       txType,
		Stock:      stock,
		Date:       date,
		Quantity:   quantity,
		Price:      price,
		TotalPrice: totalPrice,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Transaction recorded: %s %s x%d at %s (%s total)\n",
		tx.Type, tx.Stock, tx.Quantity, tx.Price.String(), tx.TotalPrice.String())
	if tx.Performance != nil {
		fmt.Fprintf(c.out, "Performance: %s %s\n", tx.Performance.Round(2).String(), c.cfg.Currency.Suffix)
	}
	return nil
}

func (c *Controller) addYield(ctx context.Context) error {
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}
	typeStr, err := c.prompt("Yield type (dividend, jcp, rendimentos_de_clientes or fracoes_de_acoes)", "")
	if err != nil {
		return err
	}
	yieldType, err := model.ParseYieldType(typeStr)
	if err != nil {
		return err
	}
	stock, err := c.prompt("Stock", "")
	if err != nil {
		return err
	}
	date, err := c.promptDate("Date (YYYY-MM-DD)", time.Now())
	if err != nil {
		return err
	}
	value, err := c.promptDecimal("Value")
	if err != nil {
		return err
	}

	y, err := c.service.AddYield(ctx, ledgerService.YieldDraft{
		Broker: broker,
		Type:   yieldType,
		Stock:  stock,
		Date:   date,
		Value:  value,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Yield recorded: %s %s %s %s\n", y.Stock, y.Type, y.Value.String(), c.cfg.Currency.Suffix)
	return nil
}

// stocksReport emits the IR stocks report followed by the sold-position rows
// and their monthly rollup.
func (c *Controller) stocksReport(ctx context.Context) error {
	threshold, err := c.promptDate("Positions up to (YYYY-MM-DD)", time.Now())
	if err != nil {
		return err
	}
	from, to, err := c.promptRange()
	if err != nil {
		return err
	}
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}

	stocks, err := c.service.GetStocksReport(ctx, threshold, broker)
	if err != nil {
		return err
	}
	if err := c.export(ctx, stocks); err != nil {
		return err
	}

	sold, monthly, err := c.service.GetSoldReport(ctx, from, to, broker)
	if err != nil {
		return err
	}
	if err := c.export(ctx, sold); err != nil {
		return err
	}
	return c.export(ctx, monthly)
}

func (c *Controller) yieldReport(ctx context.Context) error {
	from, to, err := c.promptRange()
	if err != nil {
		return err
	}
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}

	report, err := c.service.GetYieldReport(ctx, from, to, broker)
	if err != nil {
		return err
	}
	return c.export(ctx, report)
}

func (c *Controller) stocksStatistics(ctx context.Context) error {
	portfolio, err := c.prompt("Portfolio", "")
	if err != nil {
		return err
	}
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}
	threshold, err := c.promptDate("Positions up to (YYYY-MM-DD)", time.Now())
	if err != nil {
		return err
	}

	general, perStock, err := c.service.GetStocksSummary(ctx, threshold, broker, portfolio)
	if errors.Is(err, service.ErrUnknownPortfolio) {
		fmt.Fprintf(c.out, "Portfolio %q is not configured\n", portfolio)
		return nil
	}
	if err != nil {
		return err
	}

	if err := c.export(ctx, general); err != nil {
		return err
	}
	return c.export(ctx, perStock)
}

func (c *Controller) yieldStatistics(ctx context.Context) error {
	portfolio, err := c.prompt("Portfolio", "")
	if err != nil {
		return err
	}
	broker, err := c.prompt("Broker", "")
	if err != nil {
		return err
	}
	from, to, err := c.promptRange()
	if err != nil {
		return err
	}

	general, perStock, err := c.service.GetYieldSummary(ctx, from, to, broker, portfolio)
	if errors.Is(err, service.ErrUnknownPortfolio) {
		fmt.Fprintf(c.out, "Portfolio %q is not configured\n", portfolio)
		return nil
	}
	if err != nil {
		return err
	}

	if err := c.export(ctx, general); err != nil {
		return err
	}
	return c.export(ctx, perStock)
}

// export asks for a sink per payload and routes the report. The csv sink
// additionally asks for a target filename.
func (c *Controller) export(ctx context.Context, report model.Report) error {
	if report.Empty() {
		fmt.Fprintf(c.out, "No rows for %s\n", report.Name)
		return nil
	}

	sinkStr, err := c.prompt(fmt.Sprintf("Export %s to (print, csv, xlsx, database or api)", report.Name), string(model.SinkPrint))
	if err != nil {
		return err
	}
	sink, err := model.ParseSink(sinkStr)
	if err != nil {
		return err
	}

	filename := ""
	if sink == model.SinkCSV {
		filename, err = c.prompt("Filename", report.Name+".csv")
		if err != nil {
			return err
		}
	}

	return c.exporter.Export(ctx, sink, report, filename)
}

// promptRange reads the report window; the defaults span the current year up
// to today.
func (c *Controller) promptRange() (from, to time.Time, err error) {
	now := time.Now()
	from, err = c.promptDate("From (YYYY-MM-DD)", time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = c.promptDate("To (YYYY-MM-DD)", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (c *Controller) prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(c.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(c.out, "%s: ", label)
	}

	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	value := strings.TrimSpace(c.in.Text())
	if value == "" {
		return def, nil
	}
	return value, nil
}

func (c *Controller) promptDate(label string, def time.Time) (time.Time, error) {
	def = model.DateOnly(def)
	value, err := c.prompt(label, def.Format(time.DateOnly))
	if err != nil {
		return time.Time{}, err
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected format YYYY-MM-DD", value)
	}
	return date, nil
}

func (c *Controller) promptInt(label string) (int64, error) {
	value, err := c.prompt(label, "")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return n, nil
}

func (c *Controller) promptDecimal(label string) (decimal.Decimal, error) {
	value, err := c.prompt(label, "")
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid value %q", value)
	}
	return d, nil
}
