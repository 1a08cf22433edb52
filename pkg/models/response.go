package models

// ResponseKind is the closed set of presentation forms a query result can
// take. The router matches exhaustively over these; there is no string
// fall-through.
type ResponseKind string

const (
	ResponseText  ResponseKind = "text"
	ResponseCard  ResponseKind = "card"
	ResponseTable ResponseKind = "table"
	ResponseChart ResponseKind = "chart"
)

// ChartKind is the closed set of chart shapes the external renderer accepts.
type ChartKind string

const (
	ChartPie     ChartKind = "pie"
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartScatter ChartKind = "scatter"
)

// MetricCard is a single key-metric display entry.
type MetricCard struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// TableData is a rowset formatted for tabular presentation.
type TableData struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ChartData carries a rendered chart image plus the rows it was built from.
type ChartData struct {
	Kind     ChartKind `json:"chart_type"`
	ImagePNG []byte    `json:"image_png"`
	Title    string    `json:"title,omitempty"`
}

// Response is the formatted answer for one chat turn. Exactly one payload
// field is populated, selected by Kind.
type Response struct {
	Kind  ResponseKind  `json:"type"`
	Text  string        `json:"text,omitempty"`
	Cards []MetricCard  `json:"cards,omitempty"`
	Table *TableData    `json:"table,omitempty"`
	Chart *ChartData    `json:"chart,omitempty"`
	SQL   string        `json:"sql,omitempty"`
}
