package repository

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/converter/dbConverter"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/model/dbModel"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/shopspring/decimal"
)

// Postgres is the record store for the two collections: the stocks
// (transaction) table and the yields table. Records are append-only except
// the full-table replace used by the CSV reimport flow.
type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

func (r *Postgres) InsertTransaction(ctx context.Context, tx model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO stocks(broker, transaction_type, stock, date, quantity, price, total_price, performance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("transaction", tx), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	performance := decimal.NullDecimal{}
	if tx.Performance != nil {
		performance = decimal.NullDecimal{Decimal: *tx.Performance, Valid: true}
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		tx.Broker,
		string(tx.Type),
		tx.Stock,
		tx.Date,
		tx.Quantity,
		tx.Price,
		tx.TotalPrice,
		performance,
	)

	return err
}

func (r *Postgres) InsertYield(ctx context.Context, y model.Yield) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertYield"
	query := `
		INSERT INTO yields(broker, yield_type, stock, date, value)
		VALUES ($1, $2, $3, $4, $5)
	`

	slog.Debug("InsertYield start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("yield", y), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertYield failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertYield completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.db.ExecContext(ctx, query, y.Broker, string(y.Type), y.Stock, y.Date, y.Value)
	return err
}

// DropTransactions empties the stocks table; used by the CSV replace flow.
func (r *Postgres) DropTransactions(ctx context.Context) (err error) {
	return r.truncate(ctx, "Postgres.DropTransactions", `TRUNCATE TABLE stocks`)
}

// DropYields empties the yields table; used by the CSV replace flow.
func (r *Postgres) DropYields(ctx context.Context) (err error) {
	return r.truncate(ctx, "Postgres.DropYields", `TRUNCATE TABLE yields`)
}

func (r *Postgres) truncate(ctx context.Context, op, query string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("truncate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("truncate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("truncate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.db.ExecContext(ctx, query)
	return err
}

// CostBasisByStock is the grouping aggregation behind the cost-basis report:
// it sums signed total_price and quantity per stock across every transaction
// with date <= threshold for the given broker. Sells carry negative values by
// construction, so they reduce the running position.
func (r *Postgres) CostBasisByStock(ctx context.Context, threshold time.Time, broker string) (rows []model.CostBasisRow, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CostBasisByStock"
	params := map[string]any{
		"threshold": threshold,
		"broker":    broker,
	}
	query := `
		SELECT stock, SUM(total_price) AS total, SUM(quantity) AS quantity
		FROM stocks
		WHERE date <= $1
		AND broker = $2
		GROUP BY stock
		ORDER BY stock
	`

	slog.Debug("CostBasisByStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("CostBasisByStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CostBasisByStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbRows, err := r.db.QueryxContext(ctx, query, threshold, broker)
	if err != nil {
		return nil, err
	}

	defer dbRows.Close()

	for dbRows.Next() {
		var row dbModel.CostBasisRow
		err = dbRows.StructScan(&row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, dbConverter.ConvertCostBasisRow(row))
	}

	return rows, dbRows.Err()
}

// SoldTransactions returns Sell records with date strictly inside (from, to)
// for the given broker.
func (r *Postgres) SoldTransactions(ctx context.Context, from, to time.Time, broker string) (txs []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SoldTransactions"
	params := map[string]any{
		"from":   from,
		"to":     to,
		"broker": broker,
	}
	query := `
		SELECT broker, transaction_type, stock, date, quantity, price, total_price, performance
		FROM stocks
		WHERE date > $1
		AND date < $2
		AND broker = $3
		AND transaction_type = 'Sell'
		ORDER BY id
	`

	slog.Debug("SoldTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("SoldTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SoldTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.selectTransactions(ctx, query, from, to, broker)
}

// Yields returns yield records with date strictly inside (from, to) for the
// given broker, in insertion order.
func (r *Postgres) Yields(ctx context.Context, from, to time.Time, broker string) (yields []model.Yield, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.Yields"
	params := map[string]any{
		"from":   from,
		"to":     to,
		"broker": broker,
	}
	query := `
		SELECT broker, yield_type, stock, date, value
		FROM yields
		WHERE date > $1
		AND date < $2
		AND broker = $3
		ORDER BY id
	`

	slog.Debug("Yields start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("Yields failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Yields completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.selectYields(ctx, query, from, to, broker)
}

// AllTransactions returns every transaction record in insertion order.
func (r *Postgres) AllTransactions(ctx context.Context) (txs []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AllTransactions"
	query := `
		SELECT broker, transaction_type, stock, date, quantity, price, total_price, performance
		FROM stocks
		ORDER BY id
	`

	slog.Debug("AllTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AllTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AllTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.selectTransactions(ctx, query)
}

// AllYields returns every yield record in insertion order.
func (r *Postgres) AllYields(ctx context.Context) (yields []model.Yield, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AllYields"
	query := `
		SELECT broker, yield_type, stock, date, value
		FROM yields
		ORDER BY id
	`

	slog.Debug("AllYields start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AllYields failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AllYields completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.selectYields(ctx, query)
}

func (r *Postgres) selectTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var tx dbModel.Transaction
		err = rows.StructScan(&tx)
		if err != nil {
			return nil, err
		}
		txs = append(txs, dbConverter.ConvertTransaction(tx))
	}

	return txs, rows.Err()
}

func (r *Postgres) selectYields(ctx context.Context, query string, args ...any) ([]model.Yield, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var yields []model.Yield
	for rows.Next() {
		var y dbModel.Yield
		err = rows.StructScan(&y)
		if err != nil {
			return nil, err
		}
		yields = append(yields, dbConverter.ConvertYield(y))
	}

	return yields, rows.Err()
}
