package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/llm"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// ChartRenderer turns a rowset into a chart image. Rendering happens
// outside this process; implementations typically call a sidecar service.
type ChartRenderer interface {
	Render(ctx context.Context, kind models.ChartKind, result *datasource.QueryResult, title string) ([]byte, error)
}

// ResponseRouter decides how a query result is presented and formats it.
// Formatting never fails a turn: every path has a degradation chain ending
// in a plain table or raw text dump.
type ResponseRouter interface {
	// ClassifyPresentation picks the presentation form from question
	// phrasing. The chart kind is meaningful only when the response kind
	// is ResponseChart.
	ClassifyPresentation(question string) (models.ResponseKind, models.ChartKind)

	// Format renders a query result into the response shape the question
	// asked for, applying fallbacks when the shape does not fit the data.
	Format(ctx context.Context, question string, result *datasource.QueryResult, sqlText string) *models.Response

	// Documentation answers schema-documentation questions (list tables,
	// describe a table) straight from the snapshot, without SQL. The second
	// return is false when the question is not a documentation query.
	Documentation(question string, snapshot *models.SchemaSnapshot) (*models.Response, bool)
}

type responseRouter struct {
	client   llm.CompletionClient
	prompts  PromptBuilder
	renderer ChartRenderer // nil when no renderer is deployed
	glossary Glossary
	logger   *zap.Logger
}

// NewResponseRouter creates the router. renderer may be nil; chart requests
// then fall back to tables.
func NewResponseRouter(
	client llm.CompletionClient,
	prompts PromptBuilder,
	renderer ChartRenderer,
	glossary Glossary,
	logger *zap.Logger,
) ResponseRouter {
	return &responseRouter{
		client:   client,
		prompts:  prompts,
		renderer: renderer,
		glossary: glossary,
		logger:   logger.Named("responder"),
	}
}

// chartPhrases map question wording to a chart kind. Checked before the
// generic chart words so "pie chart" does not fall through to bar.
var chartPhrases = []struct {
	phrase string
	kind   models.ChartKind
}{
	{"pie chart", models.ChartPie},
	{"pie graph", models.ChartPie},
	{"bar chart", models.ChartBar},
	{"bar graph", models.ChartBar},
	{"line chart", models.ChartLine},
	{"line graph", models.ChartLine},
	{"trend chart", models.ChartLine},
	{"scatter plot", models.ChartScatter},
	{"scatter chart", models.ChartScatter},
}

var cardWords = []string{
	"how many", "total", "count of", "sum of", "average", "metric", "kpi",
}

// textWords request a prose answer instead of a rowset.
var textWords = []string{
	"summarize", "summarise", "in plain english", "in words", "explain the results",
}

func (r *responseRouter) ClassifyPresentation(question string) (models.ResponseKind, models.ChartKind) {
	q := strings.ToLower(question)

	for _, cp := range chartPhrases {
		if strings.Contains(q, cp.phrase) {
			return models.ResponseChart, cp.kind
		}
	}
	if containsAny(q, "chart", "graph", "plot", "visualize", "visualise") {
		return models.ResponseChart, models.ChartBar
	}
	if containsAny(q, textWords...) {
		return models.ResponseText, ""
	}
	if containsAny(q, cardWords...) {
		return models.ResponseCard, ""
	}
	return models.ResponseTable, ""
}

func (r *responseRouter) Format(ctx context.Context, question string, result *datasource.QueryResult, sqlText string) *models.Response {
	kind, chartKind := r.ClassifyPresentation(question)

	switch kind {
	case models.ResponseChart:
		return r.formatChart(ctx, question, result, chartKind, sqlText)
	case models.ResponseCard:
		return r.formatCard(result, sqlText)
	case models.ResponseText:
		return r.formatText(ctx, question, result, sqlText)
	case models.ResponseTable:
		return r.formatTable(result, sqlText)
	default:
		return r.formatTable(result, sqlText)
	}
}

func (r *responseRouter) formatTable(result *datasource.QueryResult, sqlText string) *models.Response {
	return &models.Response{
		Kind: models.ResponseTable,
		Table: &models.TableData{
			Columns: result.Columns,
			Rows:    result.Rows,
		},
		SQL: sqlText,
	}
}

// formatCard renders single metrics. A card needs a 1x1 result, or a single
// row whose numeric columns become one card each; anything else degrades to
// a table.
func (r *responseRouter) formatCard(result *datasource.QueryResult, sqlText string) *models.Response {
	if result.RowCount != 1 {
		return r.formatTable(result, sqlText)
	}
	row := result.Rows[0]

	if len(result.Columns) == 1 {
		col := result.Columns[0]
		return &models.Response{
			Kind:  models.ResponseCard,
			Cards: []models.MetricCard{{Title: titleize(col), Value: fmt.Sprintf("%v", row[col])}},
			SQL:   sqlText,
		}
	}

	var cards []models.MetricCard
	for _, col := range result.Columns {
		if isNumeric(row[col]) {
			cards = append(cards, models.MetricCard{
				Title: titleize(col),
				Value: fmt.Sprintf("%v", row[col]),
			})
		}
	}
	if len(cards) == 0 {
		return r.formatTable(result, sqlText)
	}
	return &models.Response{Kind: models.ResponseCard, Cards: cards, SQL: sqlText}
}

func (r *responseRouter) formatChart(ctx context.Context, question string, result *datasource.QueryResult, kind models.ChartKind, sqlText string) *models.Response {
	if r.renderer == nil || result.RowCount == 0 {
		return r.formatTable(result, sqlText)
	}

	png, err := r.renderer.Render(ctx, kind, result, question)
	if err != nil {
		r.logger.Warn("chart rendering failed, falling back to table",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return r.formatTable(result, sqlText)
	}

	return &models.Response{
		Kind: models.ResponseChart,
		Chart: &models.ChartData{
			Kind:     kind,
			ImagePNG: png,
			Title:    question,
		},
		SQL: sqlText,
	}
}

// formatText asks the completion service to summarize the rowset in business
// language. Failure degrades to the raw dump rather than aborting the turn.
func (r *responseRouter) formatText(ctx context.Context, question string, result *datasource.QueryResult, sqlText string) *models.Response {
	prompt := r.prompts.BuildSummaryPrompt(question, &QueryResultView{
		Columns: result.Columns,
		Rows:    result.Rows,
	})
	completion, err := r.client.Complete(ctx, prompt, 0.3, 300)
	if err != nil || strings.TrimSpace(completion.Text) == "" {
		r.logger.Warn("summary generation failed, returning raw dump", zap.Error(err))
		return &models.Response{
			Kind: models.ResponseText,
			Text: rawDump(result),
			SQL:  sqlText,
		}
	}
	return &models.Response{
		Kind: models.ResponseText,
		Text: strings.TrimSpace(completion.Text),
		SQL:  sqlText,
	}
}

var listTablePhrases = []string{
	"what tables", "which tables", "list tables", "list all tables",
	"show tables", "available tables", "what data do you have",
}

var describePhrases = []string{
	"describe ", "what columns", "which columns", "structure of", "schema of",
}

func (r *responseRouter) Documentation(question string, snapshot *models.SchemaSnapshot) (*models.Response, bool) {
	q := strings.ToLower(question)

	if containsAny(q, listTablePhrases...) {
		names := snapshot.TableNames()
		sort.Strings(names)
		lines := make([]string, 0, len(names))
		for _, name := range names {
			business := r.glossary.BusinessName(name)
			if business != name {
				lines = append(lines, fmt.Sprintf("%s (%s)", business, name))
			} else {
				lines = append(lines, name)
			}
		}
		return &models.Response{
			Kind: models.ResponseText,
			Text: "Available tables:\n" + strings.Join(lines, "\n"),
		}, true
	}

	if containsAny(q, describePhrases...) {
		for name, info := range snapshot.Tables {
			if !strings.Contains(q, strings.ToLower(name)) &&
				!strings.Contains(q, strings.ToLower(r.glossary.BusinessName(name))) {
				continue
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "Table %s columns:\n", name)
			for _, col := range info.Columns {
				fmt.Fprintf(&sb, "- %s (%s)", col.Name, col.DataType)
				if col.IsPrimaryKey {
					sb.WriteString(" [primary key]")
				}
				sb.WriteString("\n")
			}
			for _, fk := range info.ForeignKeys {
				fmt.Fprintf(&sb, "- %s references %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
			}
			return &models.Response{Kind: models.ResponseText, Text: sb.String()}, true
		}
	}

	return nil, false
}

// rawDump renders a rowset as plain text for the last-resort fallback.
func rawDump(result *datasource.QueryResult) string {
	if result.RowCount == 0 {
		return "No matching rows found."
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(result.Columns, " | "))
	sb.WriteString("\n")
	for _, row := range result.Rows {
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%v", row[col]))
		}
		sb.WriteString(strings.Join(parts, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case string:
		s := v.(string)
		if s == "" {
			return false
		}
		dot := false
		for i, r := range s {
			if r == '-' && i == 0 {
				continue
			}
			if r == '.' && !dot {
				dot = true
				continue
			}
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// titleize turns a column identifier into a display title.
func titleize(col string) string {
	words := tokenize(col)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var _ ResponseRouter = (*responseRouter)(nil)
