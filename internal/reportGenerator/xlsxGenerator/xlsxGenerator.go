package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/statistics"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the report rows into a single-sheet workbook: a styled
// header line built from the field names, then one line per row.
func (g *XLSXGenerator) Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if report.Empty() {
		return nil, "", errors.New("empty report")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("report", report.Name))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	sheetName := sheetTitle(report.Name)
	if _, err := f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, "", err
	}

	for col, name := range report.Header() {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, "", err
		}
		_ = f.SetCellStr(sheetName, cell, name)
		_ = f.SetCellStyle(sheetName, cell, cell, styleID)
	}

	for rowIdx, row := range report.Rows {
		for col, field := range row.Fields {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, "", err
			}
			g.setCell(f, sheetName, cell, field)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) setCell(f *excelize.File, sheetName, cell string, field model.Field) {
	switch val := field.Value.(type) {
	case string:
		_ = f.SetCellStr(sheetName, cell, val)
	case int64:
		_ = f.SetCellInt(sheetName, cell, val)
	case int:
		_ = f.SetCellInt(sheetName, cell, int64(val))
	case decimal.Decimal:
		_ = f.SetCellValue(sheetName, cell, val.InexactFloat64())
	case statistics.PerformancePair:
		_ = f.SetCellStr(sheetName, cell, fmt.Sprintf("%s | %s %%", val.Abs.String(), val.Pct.String()))
	default:
		_ = f.SetCellValue(sheetName, cell, val)
	}
}

// sheet names are capped at 31 chars by the xlsx format
func sheetTitle(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
