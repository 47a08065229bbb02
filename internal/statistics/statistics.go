// Package statistics is the aggregation engine: pure report-shaping over
// typed ledger records. Every function is a function of its inputs only;
// portfolio selection and prices are passed in by the caller.
package statistics

import (
	"sort"
	"time"

	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)
var hundred = decimal.NewFromInt(100)

// PerformancePair is an absolute gain plus a percentage, rendered together
// as "<abs> <currency> | <pct> %".
type PerformancePair struct {
	Abs decimal.Decimal
	Pct decimal.Decimal
}

// StocksReport shapes the cost-basis aggregation for the IR stocks report:
// rows whose net quantity reached zero are skipped and the average price per
// share (pm) is attached.
func StocksReport(costRows []model.CostBasisRow) model.Report {
	report := model.Report{Name: "stocks_report"}
	for _, row := range costRows {
		if row.Quantity == 0 {
			continue
		}
		pm := row.Total.Div(decimal.NewFromInt(row.Quantity)).Round(2)

		r := model.Row{}
		r.Add("stock", row.Stock, model.RenderPlain)
		r.Add("total", row.Total, model.RenderPlain)
		r.Add("quantity", row.Quantity, model.RenderShares)
		r.Add("pm", pm, model.RenderPlain)
		report.Rows = append(report.Rows, r)
	}
	return report
}

// SoldReport emits one row per sale with the signs flipped back to positive
// plus a monthly rollup of realized performance. Buckets are keyed by month
// name only, so the same month of different years collapses together.
func SoldReport(sells []model.Transaction) (rows model.Report, monthly model.Report) {
	rows = model.Report{Name: "sold_stocks_report"}
	buckets := newMonthlyTotals()

	for _, sell := range sells {
		performance := decimal.Zero
		if sell.Performance != nil {
			performance = sell.Performance.Round(2)
		}
		buckets.add(sell.Date.Month(), performance)

		r := model.Row{}
		r.Add("stock", sell.Stock, model.RenderPlain)
		r.Add("date", sell.Date.Format(time.DateOnly), model.RenderPlain)
		r.Add("quantity", -sell.Quantity, model.RenderShares)
		r.Add("total_value", sell.TotalPrice.Neg(), model.RenderCurrency)
		r.Add("performance", performance, model.RenderCurrency)
		rows.Rows = append(rows.Rows, r)
	}

	monthly = model.Report{Name: "sold_stocks_monthly_performance", Rows: []model.Row{buckets.row()}}
	return rows, monthly
}

// YieldReport sorts yield records by type for the tax report. The sort is
// stable: ties keep insertion order.
func YieldReport(yields []model.Yield) model.Report {
	sorted := make([]model.Yield, len(yields))
	copy(sorted, yields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Type < sorted[j].Type
	})

	report := model.Report{Name: "yield_report"}
	for _, y := range sorted {
		r := model.Row{}
		r.Add("broker", y.Broker, model.RenderPlain)
		r.Add("yield_type", string(y.Type), model.RenderHumanize)
		r.Add("stock", y.Stock, model.RenderPlain)
		r.Add("date", y.Date.Format(time.DateOnly), model.RenderPlain)
		r.Add("value", y.Value, model.RenderCurrency)
		report.Rows = append(report.Rows, r)
	}
	return report
}

// SelectedStocks resolves a portfolio name against the configured mapping.
// The wildcard entry "*" selects every stock present in the result set. The
// second return is false when the portfolio is not registered.
func SelectedStocks(portfolios map[string][]string, portfolio string, stocksInData []string) ([]string, bool) {
	selected, ok := portfolios[portfolio]
	if !ok || len(selected) == 0 {
		return nil, false
	}

	for _, stock := range selected {
		if stock == "*" {
			return stocksInData, true
		}
	}

	return selected, true
}

// YieldSummary computes the monthly yield totals (plus average_per_month,
// always divided by 12) and the per-stock totals broken down by yield type.
// Monthly buckets accumulate each record's value rounded to 2 decimals;
// per-stock totals sum raw values and round once at the end.
func YieldSummary(yields []model.Yield, selected []string) (general model.Report, perStock model.Report) {
	selectedSet := toSet(selected)
	buckets := newMonthlyTotals()

	perStockTotals := make(map[string]map[model.YieldType]decimal.Decimal)
	stockOrder := make([]string, 0)

	for _, y := range yields {
		if !selectedSet[y.Stock] {
			continue
		}
		buckets.add(y.Date.Month(), y.Value.Round(2))
		if _, ok := perStockTotals[y.Stock]; !ok {
			perStockTotals[y.Stock] = make(map[model.YieldType]decimal.Decimal)
			stockOrder = append(stockOrder, y.Stock)
		}
	}

	for _, y := range yields {
		if !selectedSet[y.Stock] {
			continue
		}
		perStockTotals[y.Stock][y.Type] = perStockTotals[y.Stock][y.Type].Add(y.Value)
	}

	generalRow := buckets.row()
	generalRow.Add("average_per_month", buckets.sum().Div(twelve).Round(2), model.RenderCurrency)
	general = model.Report{Name: "yields_general_summary", Rows: []model.Row{generalRow}}

	perStock = model.Report{Name: "yields_per_stock_summary"}
	for _, stock := range stockOrder {
		r := model.Row{}
		r.Add("stock", stock, model.RenderPlain)
		for _, yieldType := range model.YieldTypes {
			r.Add(string(yieldType), perStockTotals[stock][yieldType].Round(2), model.RenderCurrency)
		}
		perStock.Rows = append(perStock.Rows, r)
	}

	return general, perStock
}

// StocksSummary compares the live value of the selected positions against
// their invested totals. Percentage performance keeps the original rounding
// order: the ratio is rounded to 2 decimals before the x100 scaling.
func StocksSummary(costRows []model.CostBasisRow, selected []string, prices map[string]decimal.Decimal) (general model.Report, perStock model.Report) {
	selectedSet := toSet(selected)

	totalInvested := decimal.Zero
	currentTotalValue := decimal.Zero
	for _, row := range costRows {
		if !selectedSet[row.Stock] {
			continue
		}
		totalInvested = totalInvested.Add(row.Total)
		currentTotalValue = currentTotalValue.Add(prices[row.Stock].Mul(decimal.NewFromInt(row.Quantity)))
	}

	generalRow := model.Row{}
	generalRow.Add("total_invested", totalInvested.Round(2), model.RenderPlain)
	generalRow.Add("current_total_value", currentTotalValue.Round(2), model.RenderCurrency)
	generalRow.Add("performance", performancePair(currentTotalValue, totalInvested), model.RenderPerformancePair)
	general = model.Report{Name: "stocks_general_summary", Rows: []model.Row{generalRow}}

	perStock = model.Report{Name: "stocks_per_stock_summary"}
	for _, row := range costRows {
		if !selectedSet[row.Stock] || row.Quantity == 0 {
			continue
		}

		price := prices[row.Stock]
		totalCurrentValue := price.Mul(decimal.NewFromInt(row.Quantity)).Round(2)
		totalInvestedValue := row.Total.Round(2)

		weight := decimal.Zero
		if !currentTotalValue.IsZero() {
			weight = totalCurrentValue.Div(currentTotalValue).Round(2).Mul(hundred)
		}

		r := model.Row{}
		r.Add("stock", row.Stock, model.RenderPlain)
		r.Add("current_stock_value", price, model.RenderCurrency)
		r.Add("total_current_stock_value", totalCurrentValue, model.RenderCurrency)
		r.Add("total_invested_stock_value", totalInvestedValue, model.RenderCurrency)
		r.Add("stock_weight", weight, model.RenderPercent)
		r.Add("stock_performance", performancePair(totalCurrentValue, totalInvestedValue), model.RenderPerformancePair)
		r.Add("quantity", row.Quantity, model.RenderShares)
		perStock.Rows = append(perStock.Rows, r)
	}

	return general, perStock
}

// performancePair builds [current - invested, (current/invested - 1) * 100].
// The rounding happens before the scaling. A zero invested total yields a
// zero percentage instead of a division failure.
func performancePair(current, invested decimal.Decimal) PerformancePair {
	pair := PerformancePair{Abs: current.Sub(invested).Round(2)}
	if !invested.IsZero() {
		pair.Pct = current.Div(invested).Sub(decimal.NewFromInt(1)).Round(2).Mul(hundred)
	}
	return pair
}

// monthlyTotals buckets values by month name in first-seen order.
type monthlyTotals struct {
	order  []time.Month
	totals map[time.Month]decimal.Decimal
}

func newMonthlyTotals() *monthlyTotals {
	return &monthlyTotals{totals: make(map[time.Month]decimal.Decimal)}
}

func (m *monthlyTotals) add(month time.Month, value decimal.Decimal) {
	if _, ok := m.totals[month]; !ok {
		m.order = append(m.order, month)
	}
	m.totals[month] = m.totals[month].Add(value)
}

func (m *monthlyTotals) sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m.totals {
		total = total.Add(v)
	}
	return total
}

func (m *monthlyTotals) row() model.Row {
	r := model.Row{}
	for _, month := range m.order {
		r.Add(month.String(), m.totals[month], model.RenderMonthCurrency)
	}
	return r
}

func toSet(stocks []string) map[string]bool {
	set := make(map[string]bool, len(stocks))
	for _, s := range stocks {
		set[s] = true
	}
	return set
}
