// Package exporter routes report payloads to the selected sink and owns the
// descriptor-driven formatting of the print sink.
package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/internal/csvtable"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/statistics"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/shopspring/decimal"
)

var ErrCloudStorageNotConfigured = errors.New("cloud storage is not configured")

type ReportGenerator interface {
	Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type Exporter struct {
	cfg       *config.Config
	generator ReportGenerator
	cloud     CloudStorage
	out       io.Writer
}

// New builds the sink dispatcher. cloud may be nil when no credentials are
// configured; the api sink then fails with ErrCloudStorageNotConfigured.
func New(cfg *config.Config, generator ReportGenerator, cloud CloudStorage, out io.Writer) *Exporter {
	return &Exporter{cfg: cfg, generator: generator, cloud: cloud, out: out}
}

// Export routes the report to the sink. filename is used by the csv sink and
// may be empty for the others.
func (e *Exporter) Export(ctx context.Context, sink model.Sink, report model.Report, filename string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Exporter.Export"

	slog.Debug("Export start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sink", string(sink)), slog.String("report", report.Name))

	switch sink {
	case model.SinkPrint:
		return e.print(report)
	case model.SinkCSV:
		return csvWrite(filename, report)
	case model.SinkXLSX:
		return e.xlsx(ctx, report)
	case model.SinkDatabase:
		// derived rows are ephemeral and never persisted
		slog.Info("database sink is a no-op: report rows are not persisted", slog.String("rqID", rqID), slog.String("report", report.Name))
		return nil
	case model.SinkAPI:
		return e.upload(ctx, report)
	}

	return &model.InvalidSinkError{Value: string(sink)}
}

func (e *Exporter) print(report model.Report) error {
	for _, row := range report.Rows {
		fmt.Fprintln(e.out)
		for _, f := range row.Fields {
			fmt.Fprintf(e.out, "%s: %s\n", humanize(f.Name), e.formatValue(f))
		}
	}
	fmt.Fprintln(e.out)
	return nil
}

// formatValue applies the field's render descriptor: currency/percent/shares
// suffixes, humanized enum values and "<abs> <currency> | <pct> %" pairs.
func (e *Exporter) formatValue(f model.Field) string {
	switch f.Render {
	case model.RenderCurrency:
		return rawValue(f.Value) + " " + e.cfg.Currency.Suffix
	case model.RenderMonthCurrency:
		if d, ok := f.Value.(decimal.Decimal); ok {
			return d.Round(2).String() + " " + e.cfg.Currency.Suffix
		}
		return rawValue(f.Value) + " " + e.cfg.Currency.Suffix
	case model.RenderPercent:
		return rawValue(f.Value) + " %"
	case model.RenderShares:
		return rawValue(f.Value) + " shares"
	case model.RenderHumanize:
		return humanize(rawValue(f.Value))
	case model.RenderPerformancePair:
		if pair, ok := f.Value.(statistics.PerformancePair); ok {
			return fmt.Sprintf("%s %s | %s %%", pair.Abs.String(), e.cfg.Currency.Suffix, pair.Pct.String())
		}
	}
	return rawValue(f.Value)
}

func (e *Exporter) xlsx(ctx context.Context, report model.Report) error {
	fileBytes, fileExtension, err := e.generator.Generate(ctx, report)
	if err != nil {
		return err
	}

	filename := report.Name + "-" + uuid.NewString() + fileExtension
	if err := os.WriteFile(filename, fileBytes, 0o644); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}

	fmt.Fprintf(e.out, "report saved to %s\n", filename)
	return nil
}

func (e *Exporter) upload(ctx context.Context, report model.Report) error {
	if e.cloud == nil {
		return ErrCloudStorageNotConfigured
	}

	buf := &bytes.Buffer{}
	if err := csvRender(buf, report); err != nil {
		return err
	}

	filename := report.Name + "-" + uuid.NewString() + ".csv"
	link, err := e.cloud.UploadFile(ctx, buf, filename)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "report uploaded: %s\n", link)
	return nil
}

// csvWrite appends the report to filename, writing the header only when the
// file is created.
func csvWrite(filename string, report model.Report) error {
	if report.Empty() {
		return nil
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		values := make([]string, 0, len(row.Fields))
		for _, f := range row.Fields {
			values = append(values, rawValue(f.Value))
		}
		rows = append(rows, values)
	}

	return csvtable.WriteRows(filename, report.Header(), rows)
}

// csvRender writes the report as a semicolon CSV document with a header.
func csvRender(w io.Writer, report model.Report) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(report.Header()); err != nil {
		return err
	}
	for _, row := range report.Rows {
		values := make([]string, 0, len(row.Fields))
		for _, f := range row.Fields {
			values = append(values, rawValue(f.Value))
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// rawValue stringifies a field value without display suffixes; used by the
// file sinks.
func rawValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	case statistics.PerformancePair:
		return val.Abs.String() + " | " + val.Pct.String()
	case int64:
		return fmt.Sprintf("%d", val)
	case int:
		return fmt.Sprintf("%d", val)
	}
	return fmt.Sprintf("%v", v)
}

// humanize turns an identifier into a label: underscores become spaces and
// the first letter is capitalized ("rendimentos_de_clientes" -> "Rendimentos
// de clientes").
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
