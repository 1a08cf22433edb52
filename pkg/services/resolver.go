package services

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"
	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// TableResolver maps a question to the physical tables likely needed to
// answer it. Resolution is deterministic: the same question against the
// same glossary always yields the same set.
type TableResolver interface {
	// Resolve returns the sorted set of physical tables matched by exact
	// keyword hits, fuzzy keyword hits, and whole-domain expansion. Empty
	// only when nothing fired at all.
	Resolve(question string) []string

	// FallbackTables returns the per-domain default tables drawn from the
	// given schema table list, for when Resolve comes back empty.
	FallbackTables(domain models.Domain, allTables []string) []string
}

type tableResolver struct {
	glossary  Glossary
	threshold int
	logger    *zap.Logger
}

// NewTableResolver creates a resolver over the given glossary. threshold is
// the 0-100 similarity ratio a question word must reach for a fuzzy match.
func NewTableResolver(glossary Glossary, threshold int, logger *zap.Logger) TableResolver {
	return &tableResolver{
		glossary:  glossary,
		threshold: threshold,
		logger:    logger.Named("resolver"),
	}
}

// domainWords trigger whole-domain table expansion when present.
var domainWords = map[string]models.Domain{
	"hr":        models.DomainHR,
	"inventory": models.DomainInventory,
	"financial": models.DomainFinancial,
	"finance":   models.DomainFinancial,
	"reporting": models.DomainReporting,
	"reports":   models.DomainReporting,
}

func (r *tableResolver) Resolve(question string) []string {
	q := strings.ToLower(question)
	matched := make(map[string]struct{})

	// Pass 1: exact substring hits over the keyword index.
	for _, kw := range r.glossary.Keywords() {
		if strings.Contains(q, kw) {
			for _, table := range r.glossary.KeywordTables(kw) {
				matched[table] = struct{}{}
			}
		}
	}

	// Pass 2: fuzzy hits for question words that almost match a keyword.
	// Catches typos like "employes" or "invoces".
	for word := range tokenizeQuestion(q) {
		if len(word) < 3 {
			continue
		}
		for _, kw := range r.glossary.Keywords() {
			if fuzzyRatio(word, kw) >= r.threshold {
				for _, table := range r.glossary.KeywordTables(kw) {
					matched[table] = struct{}{}
				}
			}
		}
	}

	// Pass 3: a domain word pulls in that domain's whole table set.
	for word := range tokenizeQuestion(q) {
		if domain, ok := domainWords[word]; ok {
			for _, table := range r.glossary.DomainTables(domain) {
				matched[table] = struct{}{}
			}
		}
	}

	// Business-vocabulary tokens map back to physical names; tokens already
	// physical (or unknown) pass through unchanged.
	tables := make([]string, 0, len(matched))
	for table := range matched {
		tables = append(tables, r.glossary.PhysicalName(table))
	}
	sort.Strings(tables)
	tables = dedupeSorted(tables)

	r.logger.Debug("resolved tables",
		zap.String("question", question),
		zap.Strings("tables", tables))
	return tables
}

// commonFallback is tried against the schema when a domain has no
// convention-named tables.
var commonFallback = []string{"employees", "products", "sales", "payments", "users", "accounts"}

// domainPrefixes select fallback tables by naming convention.
var domainPrefixes = map[models.Domain]string{
	models.DomainHR:        "hr_",
	models.DomainInventory: "inv_",
	models.DomainFinancial: "core_fin_",
}

func (r *tableResolver) FallbackTables(domain models.Domain, allTables []string) []string {
	sorted := make([]string, len(allTables))
	copy(sorted, allTables)
	sort.Strings(sorted)

	if prefix, ok := domainPrefixes[domain]; ok {
		var tables []string
		for _, t := range sorted {
			if strings.HasPrefix(t, prefix) {
				tables = append(tables, t)
				if len(tables) == 3 {
					break
				}
			}
		}
		if len(tables) > 0 {
			return tables
		}
	}

	present := make(map[string]struct{}, len(sorted))
	for _, t := range sorted {
		present[t] = struct{}{}
	}
	var tables []string
	for _, t := range commonFallback {
		if _, ok := present[t]; ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// tokenizeQuestion splits a lowercased question into its word set.
func tokenizeQuestion(q string) map[string]struct{} {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// fuzzyRatio is the 0-100 normalized edit similarity between two strings,
// with substitutions costing double so transposition-heavy typos still score
// high.
func fuzzyRatio(a, b string) int {
	if a == b {
		return 100
	}
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return (total - dist) * 100 / total
}

var _ TableResolver = (*tableResolver)(nil)
