// Package services contains the schema-relevance engine: the business term
// glossary, domain classifier, relevant-table resolver, schema cache, prompt
// builder, SQL generation pipeline, response router, and the chat
// orchestrator tying them together.
package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// Glossary exposes the read-only business vocabulary indexes derived from
// the business terms resource. All maps are built once at construction and
// never mutated, so concurrent readers need no locking.
type Glossary interface {
	// BusinessName returns the business name for a physical table, or the
	// physical name itself when no term is registered.
	BusinessName(table string) string

	// PhysicalName maps a business-vocabulary token back to a physical
	// table name. Unknown tokens come back unchanged.
	PhysicalName(token string) string

	// KeywordTables returns the physical tables associated with a keyword.
	KeywordTables(keyword string) []string

	// Keywords returns every indexed keyword, sorted.
	Keywords() []string

	// DomainTables returns the physical tables heuristically assigned to a
	// domain.
	DomainTables(domain models.Domain) []string

	// Terms returns every registered business term.
	Terms() []models.BusinessTerm
}

type glossary struct {
	terms         []models.BusinessTerm
	byTable       map[string]string   // physical → business
	byBusiness    map[string]string   // lowercased business token → physical
	keywordIndex  map[string][]string // keyword → sorted physical tables
	domainIndex   map[models.Domain][]string
	sortedKeyword []string
}

// glossaryFile is the on-disk shape of the business terms resource.
type glossaryFile struct {
	Terms    []models.BusinessTerm `yaml:"terms"`
	Synonyms []models.Synonym      `yaml:"synonyms"`
}

// defaultSynonyms seeds keyword mappings the naming heuristics cannot infer.
// The resource file can add more; these apply only when the target table is
// actually registered.
var defaultSynonyms = []models.Synonym{
	{Keyword: "supplier", Table: "core_parties"},
	{Keyword: "suppliers", Table: "core_parties"},
}

// NewGlossary loads the business terms resource and builds the derived
// indexes. A missing or malformed file is a degraded start, not a fatal
// one: the glossary comes back empty and the error wraps
// apperrors.ErrConfiguration so the caller can log and continue.
func NewGlossary(path string, logger *zap.Logger) (Glossary, error) {
	g := &glossary{
		byTable:      make(map[string]string),
		byBusiness:   make(map[string]string),
		keywordIndex: make(map[string][]string),
		domainIndex:  make(map[models.Domain][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("business terms resource unreadable, starting with empty glossary",
			zap.String("path", path),
			zap.Error(err))
		return g, fmt.Errorf("read business terms %s: %w: %w", path, apperrors.ErrConfiguration, err)
	}

	var file glossaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Warn("business terms resource malformed, starting with empty glossary",
			zap.String("path", path),
			zap.Error(err))
		return g, fmt.Errorf("parse business terms %s: %w: %w", path, apperrors.ErrConfiguration, err)
	}

	g.build(file)
	logger.Info("business glossary loaded",
		zap.String("path", path),
		zap.Int("terms", len(g.terms)),
		zap.Int("keywords", len(g.sortedKeyword)))
	return g, nil
}

// NewGlossaryFromTerms builds a glossary directly from terms, bypassing the
// filesystem. Used by tests and by callers that source terms elsewhere.
func NewGlossaryFromTerms(terms []models.BusinessTerm, synonyms []models.Synonym) Glossary {
	g := &glossary{
		byTable:      make(map[string]string),
		byBusiness:   make(map[string]string),
		keywordIndex: make(map[string][]string),
		domainIndex:  make(map[models.Domain][]string),
	}
	g.build(glossaryFile{Terms: terms, Synonyms: synonyms})
	return g
}

func (g *glossary) build(file glossaryFile) {
	g.terms = file.Terms

	for _, term := range file.Terms {
		table := strings.ToLower(term.TableName)
		business := strings.ToLower(term.BusinessName)
		g.byTable[table] = term.BusinessName

		// Reverse map: full business name plus each of its words.
		g.byBusiness[business] = table
		for _, word := range tokenize(business) {
			if _, taken := g.byBusiness[word]; !taken {
				g.byBusiness[word] = table
			}
		}

		for _, kw := range keywordVariants(table, business) {
			g.addKeyword(kw, table)
		}

		g.domainIndex[tableDomain(table, business)] = append(
			g.domainIndex[tableDomain(table, business)], table)
	}

	for _, syn := range append(defaultSynonyms, file.Synonyms...) {
		table := strings.ToLower(syn.Table)
		if _, known := g.byTable[table]; !known {
			continue
		}
		kw := strings.ToLower(syn.Keyword)
		g.addKeyword(kw, table)
		if _, taken := g.byBusiness[kw]; !taken {
			g.byBusiness[kw] = table
		}
	}

	for kw, tables := range g.keywordIndex {
		sort.Strings(tables)
		g.keywordIndex[kw] = dedupeSorted(tables)
	}
	for domain, tables := range g.domainIndex {
		sort.Strings(tables)
		g.domainIndex[domain] = dedupeSorted(tables)
	}

	g.sortedKeyword = make([]string, 0, len(g.keywordIndex))
	for kw := range g.keywordIndex {
		g.sortedKeyword = append(g.sortedKeyword, kw)
	}
	sort.Strings(g.sortedKeyword)
}

func (g *glossary) addKeyword(keyword, table string) {
	g.keywordIndex[keyword] = append(g.keywordIndex[keyword], table)
}

// keywordVariants derives the searchable vocabulary for one term: the full
// physical and business names, their individual words longer than two
// characters, and singular/plural forms of each word.
func keywordVariants(table, business string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		if len(kw) <= 2 {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	add(table)
	add(business)
	words := append(tokenize(table), tokenize(business)...)
	for _, word := range words {
		add(word)
		add(inflection.Singular(word))
		add(inflection.Plural(word))
	}
	return out
}

// tokenize splits a name on underscores and spaces, lowercased.
func tokenize(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
}

// tableDomain assigns a table to a domain by naming convention.
func tableDomain(table, business string) models.Domain {
	combined := table + " " + business
	switch {
	case strings.HasPrefix(table, "hr_") ||
		containsAny(combined, "employee", "staff", "payroll", "salary", "department"):
		return models.DomainHR
	case strings.HasPrefix(table, "inv_") ||
		containsAny(combined, "product", "stock", "inventory", "warehouse", "item"):
		return models.DomainInventory
	case strings.HasPrefix(table, "core_fin_") || strings.HasPrefix(table, "fin_") ||
		containsAny(combined, "account", "payment", "invoice", "transaction", "ledger"):
		return models.DomainFinancial
	case strings.HasPrefix(table, "report") || containsAny(combined, "report", "summary", "analytics"):
		return models.DomainReporting
	default:
		return models.DomainGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupeSorted(in []string) []string {
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func (g *glossary) BusinessName(table string) string {
	if name, ok := g.byTable[strings.ToLower(table)]; ok {
		return name
	}
	return table
}

func (g *glossary) PhysicalName(token string) string {
	if table, ok := g.byBusiness[strings.ToLower(token)]; ok {
		return table
	}
	return token
}

func (g *glossary) KeywordTables(keyword string) []string {
	return g.keywordIndex[strings.ToLower(keyword)]
}

func (g *glossary) Keywords() []string {
	return g.sortedKeyword
}

func (g *glossary) DomainTables(domain models.Domain) []string {
	return g.domainIndex[domain]
}

func (g *glossary) Terms() []models.BusinessTerm {
	return g.terms
}

var _ Glossary = (*glossary)(nil)
