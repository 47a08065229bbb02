// Package csvtable reads and writes the semicolon-delimited ledger files.
// The header row is written only when a file is created; appends to an
// existing file skip it.
package csvtable

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/shopspring/decimal"
)

const (
	TransactionsFilename = "stocks.csv"
	YieldsFilename       = "yields.csv"
)

var transactionHeader = []string{"broker", "transaction_type", "stock", "date", "quantity", "price", "total_price", "performance"}
var yieldHeader = []string{"broker", "yield_type", "stock", "date", "value"}

func AppendTransactions(path string, txs []model.Transaction) error {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		performance := ""
		if tx.Performance != nil {
			performance = tx.Performance.String()
		}
		rows = append(rows, []string{
			tx.Broker,
			string(tx.Type),
			tx.Stock,
			tx.Date.Format(time.DateOnly),
			fmt.Sprintf("%d", tx.Quantity),
			tx.Price.String(),
			tx.TotalPrice.String(),
			performance,
		})
	}
	return WriteRows(path, transactionHeader, rows)
}

func AppendYields(path string, yields []model.Yield) error {
	rows := make([][]string, 0, len(yields))
	for _, y := range yields {
		rows = append(rows, []string{
			y.Broker,
			string(y.Type),
			y.Stock,
			y.Date.Format(time.DateOnly),
			y.Value.String(),
		})
	}
	return WriteRows(path, yieldHeader, rows)
}

// WriteRows appends rows to path, creating the file with the header first
// when it does not exist yet.
func WriteRows(path string, header []string, rows [][]string) error {
	_, statErr := os.Stat(path)
	fileExists := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error exporting csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if !fileExists {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("error exporting csv: %w", err)
		}
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("error exporting csv: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// ImportTransactions parses a transactions file back into typed records.
func ImportTransactions(path string) ([]model.Transaction, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}

	txs := make([]model.Transaction, 0, len(records))
	for i, rec := range records {
		txType, err := model.ParseTransactionType(rec["transaction_type"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		date, err := parseDate(rec["date"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		quantity, err := parseInt(rec["quantity"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid quantity: %w", i+1, err)
		}

		price, err := parseDecimal(rec["price"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price: %w", i+1, err)
		}

		totalPrice, err := parseDecimal(rec["total_price"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid total_price: %w", i+1, err)
		}

		tx := model.Transaction{
			Broker:     rec["broker"],
			Type:       txType,
			Stock:      rec["stock"],
			Date:       date,
			Quantity:   quantity,
			Price:      price,
			TotalPrice: totalPrice,
		}

		if rec["performance"] != "" {
			performance, err := parseDecimal(rec["performance"])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid performance: %w", i+1, err)
			}
			tx.Performance = &performance
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// ImportYields parses a yields file back into typed records.
func ImportYields(path string) ([]model.Yield, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}

	yields := make([]model.Yield, 0, len(records))
	for i, rec := range records {
		yieldType, err := model.ParseYieldType(rec["yield_type"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		date, err := parseDate(rec["date"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		value, err := parseDecimal(rec["value"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value: %w", i+1, err)
		}

		yields = append(yields, model.Yield{
			Broker: rec["broker"],
			Type:   yieldType,
			Stock:  rec["stock"],
			Date:   date,
			Value:  value,
		})
	}

	return yields, nil
}

// readAll maps every data row by the header line.
func readAll(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error importing csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error importing csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected format YYYY-MM-DD", s)
	}
	return t, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
