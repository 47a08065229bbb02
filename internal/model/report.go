package model

// Render selects how a report field is formatted by the sinks. Every report
// row carries explicit descriptors so display logic never has to guess from
// field names.
type Render string

const (
	// RenderPlain prints the value as-is.
	RenderPlain Render = "plain"
	// RenderCurrency appends the configured currency suffix.
	RenderCurrency Render = "currency"
	// RenderMonthCurrency rounds to 2 decimals and appends the currency
	// suffix; used for calendar-month bucket fields.
	RenderMonthCurrency Render = "month_currency"
	// RenderPercent appends a percent suffix.
	RenderPercent Render = "percent"
	// RenderShares appends a "shares" suffix.
	RenderShares Render = "shares"
	// RenderHumanize replaces underscores with spaces and capitalizes the
	// value; used for enum-valued fields.
	RenderHumanize Render = "humanize"
	// RenderPerformancePair formats a [absolute, percent] pair as
	// "<abs> <currency> | <pct> %".
	RenderPerformancePair Render = "performance_pair"
)

type Field struct {
	Name   string
	Value  any
	Render Render
}

// Row is one flat report record with ordered fields.
type Row struct {
	Fields []Field
}

func (r *Row) Add(name string, value any, render Render) {
	r.Fields = append(r.Fields, Field{Name: name, Value: value, Render: render})
}

// Get returns the value of the named field, or nil when absent.
func (r Row) Get(name string) any {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Report is an ordered list of rows sharing the same field layout.
type Report struct {
	// Name identifies the payload when a sink needs a title or a file name.
	Name string
	Rows []Row
}

func (r Report) Empty() bool { return len(r.Rows) == 0 }

// Header returns the field names of the first row; sinks that need a header
// line rely on all rows sharing the layout.
func (r Report) Header() []string {
	if len(r.Rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Rows[0].Fields))
	for _, f := range r.Rows[0].Fields {
		names = append(names, f.Name)
	}
	return names
}

// Sink selects where a report payload is routed.
type Sink string

const (
	SinkPrint    Sink = "print"
	SinkCSV      Sink = "csv"
	SinkXLSX     Sink = "xlsx"
	SinkDatabase Sink = "database"
	SinkAPI      Sink = "api"
)

func ParseSink(s string) (Sink, error) {
	switch Sink(s) {
	case SinkPrint, SinkCSV, SinkXLSX, SinkDatabase, SinkAPI:
		return Sink(s), nil
	}
	return "", &InvalidSinkError{Value: s}
}

type InvalidSinkError struct {
	Value string
}

func (e *InvalidSinkError) Error() string {
	return `invalid export target "` + e.Value + `": choose print, csv, xlsx, database or api`
}
