package services

import (
	"strings"

	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// DomainClassifier tags a question with the business area it most likely
// concerns. Classification is pure keyword matching over fixed vocabulary
// sets checked in priority order; no I/O, no state.
type DomainClassifier interface {
	Classify(question string) models.Domain
}

type domainClassifier struct{}

// NewDomainClassifier creates the keyword-based domain classifier.
func NewDomainClassifier() DomainClassifier {
	return &domainClassifier{}
}

// Vocabulary sets checked in priority order. A question mentioning both
// payroll and products is an HR question; the first matching set wins.
var (
	hrKeywords = []string{
		"employee", "employees", "staff", "salary", "salaries", "payroll",
		"department", "departments", "hire", "hired", "hiring", "attendance",
		"leave", "vacation", "designation", "workforce",
	}
	inventoryKeywords = []string{
		"product", "products", "stock", "inventory", "warehouse", "warehouses",
		"item", "items", "sku", "reorder", "category", "categories", "brand",
		"brands", "sales", "purchase", "order", "supply",
	}
	financialKeywords = []string{
		"payment", "payments", "invoice", "invoices", "account", "accounts",
		"transaction", "transactions", "revenue", "expense", "expenses",
		"balance", "ledger", "tax", "refund", "refunds", "billing",
	}
	reportingKeywords = []string{
		"report", "reports", "summary", "summaries", "analytics", "trend",
		"trends", "dashboard", "statistics", "monthly", "quarterly", "yearly",
	}
	coreEntityKeywords = []string{
		"user", "users", "client", "clients", "vendor", "vendors", "party",
		"parties", "contact", "contacts", "address", "addresses",
	}

	// ambiguousParties are checked after every named domain so that
	// financial or reporting vocabulary wins over the party mention. They
	// lean toward inventory only with supply-chain context; otherwise they
	// are general entities.
	ambiguousParties = []string{"customer", "customers", "supplier", "suppliers"}

	inventoryContext = []string{
		"product", "stock", "inventory", "sales", "purchase", "order", "supply",
	}
)

func (c *domainClassifier) Classify(question string) models.Domain {
	q := strings.ToLower(question)

	// Substring containment, so "reporting" matches "report" without the
	// list having to enumerate every variant.
	switch {
	case containsAny(q, hrKeywords...):
		return models.DomainHR
	case containsAny(q, inventoryKeywords...):
		return models.DomainInventory
	case containsAny(q, financialKeywords...):
		return models.DomainFinancial
	case containsAny(q, reportingKeywords...):
		return models.DomainReporting
	case containsAny(q, coreEntityKeywords...):
		return models.DomainGeneral
	case containsAny(q, ambiguousParties...):
		if containsAny(q, inventoryContext...) {
			return models.DomainInventory
		}
		return models.DomainGeneral
	default:
		return models.DomainGeneral
	}
}

var _ DomainClassifier = (*domainClassifier)(nil)
