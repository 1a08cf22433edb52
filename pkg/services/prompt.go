package services

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// PromptBuilder renders schema snapshots and question context into
// completion prompts. Builders are stateless and safe for concurrent use.
type PromptBuilder interface {
	// BuildSQLPrompt renders the SQL-generation prompt: compact schema,
	// domain framing, optional prior conversation, optional corrective
	// error context from a failed previous attempt.
	BuildSQLPrompt(req *SQLPromptRequest) string

	// BuildConversationalPrompt renders the fallback prompt used when no
	// SQL can be produced: a schema overview plus the raw question.
	BuildConversationalPrompt(snapshot *models.SchemaSnapshot, question string) string

	// BuildSummaryPrompt asks for a short natural-language summary of a
	// rowset, avoiding schema vocabulary.
	BuildSummaryPrompt(question string, result *QueryResultView) string
}

// SQLPromptRequest carries everything the SQL prompt needs.
type SQLPromptRequest struct {
	Snapshot     *models.SchemaSnapshot
	Question     string
	Domain       models.Domain
	Conversation string // prior turns, verbatim; empty when none
	ErrorContext string // failure detail from the previous attempt; empty when none
}

// QueryResultView is the minimal rowset shape the summary prompt needs.
type QueryResultView struct {
	Columns []string
	Rows    []map[string]any
}

type promptBuilder struct {
	logger *zap.Logger
}

// NewPromptBuilder creates the prompt builder.
func NewPromptBuilder(logger *zap.Logger) PromptBuilder {
	return &promptBuilder{logger: logger.Named("prompt")}
}

// domainFraming gives the model per-domain query guidance. General questions
// get the core-entity framing.
var domainFraming = map[models.Domain]string{
	models.DomainHR: "Focus on HR data: employees, departments, salaries, attendance. " +
		"Join employee tables to departments via department_id.",
	models.DomainInventory: "Focus on inventory data: products, stock levels, warehouses, suppliers. " +
		"Join products to categories and stock tables via product_id.",
	models.DomainFinancial: "Focus on financial data: accounts, payments, invoices, transactions. " +
		"Aggregate amounts with SUM and group by period or account.",
	models.DomainReporting: "Focus on reporting: summaries, trends, aggregates over time. " +
		"Prefer GROUP BY with date functions for period breakdowns.",
	models.DomainGeneral: "Focus on core entities: users, parties, contacts and their relationships.",
}

const maxTypeLen = 10

func (b *promptBuilder) BuildSQLPrompt(req *SQLPromptRequest) string {
	schemaText, err := compactSchema(req.Snapshot)
	if err != nil {
		// The compact renderer should not fail on well-formed snapshots;
		// if it does, the verbose dump keeps the turn alive.
		b.logger.Warn("compact schema rendering failed, using verbose dump", zap.Error(err))
		schemaText = verboseSchema(req.Snapshot)
	}

	var sb strings.Builder
	sb.WriteString("You are a SQL expert. Generate a single SELECT statement answering the question.\n\n")
	sb.WriteString("Schema (format: table[column(type)*PK if primary key,!NULL if not nullable]FK:column->referenced_table):\n")
	sb.WriteString(schemaText)
	sb.WriteString("\n\n")

	framing, ok := domainFraming[req.Domain]
	if !ok {
		framing = domainFraming[models.DomainGeneral]
	}
	sb.WriteString(framing)
	sb.WriteString("\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- Output only the SQL statement, no explanation and no code fences.\n")
	sb.WriteString("- Use only tables and columns from the schema above; never invent placeholder names.\n")
	sb.WriteString("- SELECT statements only.\n")
	sb.WriteString("- If the question cannot be answered from this schema, output exactly --ERROR\n")

	if req.Conversation != "" {
		sb.WriteString("\nPrior conversation:\n")
		sb.WriteString(req.Conversation)
		sb.WriteString("\n")
	}

	if req.ErrorContext != "" {
		sb.WriteString("\nThe previous attempt failed with this database error; correct the query accordingly:\n")
		sb.WriteString(req.ErrorContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(req.Question)
	sb.WriteString("\nSQL:")
	return sb.String()
}

func (b *promptBuilder) BuildConversationalPrompt(snapshot *models.SchemaSnapshot, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful data assistant for a business database.\n")
	sb.WriteString("The database contains these tables: ")
	names := snapshot.TableNames()
	sort.Strings(names)
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n\nAnswer the user's question conversationally in one or two sentences. ")
	sb.WriteString("Do not produce SQL.\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

func (b *promptBuilder) BuildSummaryPrompt(question string, result *QueryResultView) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following query results as a short, plain answer to the question. ")
	sb.WriteString("Use business language, not table or column names.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nColumns: ")
	sb.WriteString(strings.Join(result.Columns, ", "))
	sb.WriteString("\nRows:\n")
	for i, row := range result.Rows {
		if i >= 20 {
			sb.WriteString(fmt.Sprintf("... and %d more rows\n", len(result.Rows)-i))
			break
		}
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%s=%v", col, row[col]))
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// compactSchema renders the dense one-line-per-table schema form. Types are
// truncated to 10 characters; sample rows and flattened relationships are
// omitted since foreign keys carry the join structure.
func compactSchema(snapshot *models.SchemaSnapshot) (string, error) {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return "", fmt.Errorf("empty snapshot")
	}

	names := snapshot.TableNames()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		info := snapshot.Tables[name]
		if info == nil || len(info.Columns) == 0 {
			return "", fmt.Errorf("table %s has no columns", name)
		}

		sb.WriteString(name)
		sb.WriteString("[")
		for i, col := range info.Columns {
			if i > 0 {
				sb.WriteString(",")
			}
			dt := col.DataType
			if len(dt) > maxTypeLen {
				dt = dt[:maxTypeLen]
			}
			sb.WriteString(col.Name)
			sb.WriteString("(")
			sb.WriteString(dt)
			sb.WriteString(")")
			if col.IsPrimaryKey {
				sb.WriteString("*PK")
			}
			if !col.IsNullable {
				sb.WriteString("!NULL")
			}
		}
		sb.WriteString("]")

		if len(info.ForeignKeys) > 0 {
			sb.WriteString("FK:")
			for i, fk := range info.ForeignKeys {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(fk.Column)
				sb.WriteString("->")
				sb.WriteString(fk.ReferencedTable)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// verboseSchema is the uncompacted fallback dump.
func verboseSchema(snapshot *models.SchemaSnapshot) string {
	if snapshot == nil {
		return "(no schema available)"
	}
	names := snapshot.TableNames()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString("Table ")
		sb.WriteString(name)
		sb.WriteString(":\n")
		info := snapshot.Tables[name]
		if info == nil {
			continue
		}
		for _, col := range info.Columns {
			sb.WriteString("  ")
			sb.WriteString(col.Name)
			sb.WriteString(" ")
			sb.WriteString(col.DataType)
			if col.IsPrimaryKey {
				sb.WriteString(" PRIMARY KEY")
			}
			if !col.IsNullable {
				sb.WriteString(" NOT NULL")
			}
			sb.WriteString("\n")
		}
		for _, fk := range info.ForeignKeys {
			sb.WriteString("  FOREIGN KEY ")
			sb.WriteString(fk.Column)
			sb.WriteString(" REFERENCES ")
			sb.WriteString(fk.ReferencedTable)
			sb.WriteString("(")
			sb.WriteString(fk.ReferencedColumn)
			sb.WriteString(")\n")
		}
	}
	return sb.String()
}

var _ PromptBuilder = (*promptBuilder)(nil)
