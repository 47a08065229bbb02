package dbConverter

import (
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/model/dbModel"
)

func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	tx := model.Transaction{
		Broker:     dbTx.Broker,
		Type:       model.TransactionType(dbTx.TransactionType),
		Stock:      dbTx.Stock,
		Date:       model.DateOnly(dbTx.Date),
		Quantity:   dbTx.Quantity,
		Price:      dbTx.Price,
		TotalPrice: dbTx.TotalPrice,
	}
	if dbTx.Performance.Valid {
		perf := dbTx.Performance.Decimal
		tx.Performance = &perf
	}
	return tx
}

func ConvertYield(dbYield dbModel.Yield) model.Yield {
	return model.Yield{
		Broker: dbYield.Broker,
		Type:   model.YieldType(dbYield.YieldType),
		Stock:  dbYield.Stock,
		Date:   model.DateOnly(dbYield.Date),
		Value:  dbYield.Value,
	}
}

func ConvertCostBasisRow(dbRow dbModel.CostBasisRow) model.CostBasisRow {
	return model.CostBasisRow{
		Stock:    dbRow.Stock,
		Total:    dbRow.Total,
		Quantity: dbRow.Quantity,
	}
}
