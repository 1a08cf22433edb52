package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datachat-inc/datachat-engine/pkg/models"
)

func TestClassify(t *testing.T) {
	c := NewDomainClassifier()

	tests := []struct {
		name     string
		question string
		want     models.Domain
	}{
		{"hr by employee", "how many employees do we have", models.DomainHR},
		{"hr by payroll", "show me the payroll for March", models.DomainHR},
		{"inventory by product", "which products are low on stock", models.DomainInventory},
		{"inventory by warehouse", "list items per warehouse", models.DomainInventory},
		{"financial by payment", "total payments received this month", models.DomainFinancial},
		{"financial by invoice", "show unpaid invoices", models.DomainFinancial},
		{"reporting by trend", "show me the quarterly trend", models.DomainReporting},
		{"inventory by sales", "total sales last month", models.DomainInventory},
		{"general by user", "list all users", models.DomainGeneral},
		{"general no keywords", "tell me something interesting", models.DomainGeneral},
		{"hr beats inventory", "employee product assignments", models.DomainHR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.question))
		})
	}
}

func TestClassifyAmbiguousParties(t *testing.T) {
	c := NewDomainClassifier()

	tests := []struct {
		name     string
		question string
		want     models.Domain
	}{
		{"customer with sales context", "top customers by sales", models.DomainInventory},
		{"supplier with supply context", "which supplier handles our supply chain", models.DomainInventory},
		{"customer with order context", "customers with an open order", models.DomainInventory},
		{"customer without context", "list customer email addresses", models.DomainGeneral},
		{"supplier without context", "show all suppliers", models.DomainGeneral},
		{"financial beats customer", "show customer payments", models.DomainFinancial},
		{"reporting beats customer", "customer reports for June", models.DomainReporting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.question))
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewDomainClassifier()
	assert.Equal(t, models.DomainHR, c.Classify("How Many EMPLOYEES left?"))
}

func TestClassifyMatchesSubstrings(t *testing.T) {
	c := NewDomainClassifier()

	// Keywords match inside longer words, so morphological variants fire
	// without being listed.
	assert.Equal(t, models.DomainReporting, c.Classify("show me reporting data"))
	assert.Equal(t, models.DomainInventory, c.Classify("pending purchases by warehouse"))
}
