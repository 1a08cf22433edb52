package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{
		Database: "db",
		Tables: map[string]*TableInfo{
			"hr_employees":   {Columns: []ColumnInfo{{Name: "id", DataType: "int"}}},
			"hr_departments": {Columns: []ColumnInfo{{Name: "id", DataType: "int"}}},
			"inv_products":   {Columns: []ColumnInfo{{Name: "id", DataType: "int"}}},
		},
		Relationships: []Relationship{
			{SourceTable: "hr_employees", SourceColumn: "department_id", TargetTable: "hr_departments", TargetColumn: "id"},
			{SourceTable: "inv_products", SourceColumn: "supplier_id", TargetTable: "core_parties", TargetColumn: "id"},
		},
		FetchedAt: time.Now().Add(-30 * time.Minute),
	}
}

func TestSnapshotAge(t *testing.T) {
	s := sampleSnapshot()
	age := s.Age(s.FetchedAt.Add(45 * time.Minute))
	assert.Equal(t, 45*time.Minute, age)
}

func TestSnapshotTableNames(t *testing.T) {
	s := sampleSnapshot()
	assert.ElementsMatch(t, []string{"hr_employees", "hr_departments", "inv_products"}, s.TableNames())
}

func TestSnapshotFiltered(t *testing.T) {
	s := sampleSnapshot()

	got := s.Filtered(map[string]struct{}{
		"hr_employees": {},
		"unknown":      {},
	})

	require.Len(t, got.Tables, 1)
	assert.Contains(t, got.Tables, "hr_employees")

	// Relationships touching a kept table survive, even when the other end
	// was filtered out.
	require.Len(t, got.Relationships, 1)
	assert.Equal(t, "hr_departments", got.Relationships[0].TargetTable)

	// The original is untouched.
	assert.Len(t, s.Tables, 3)
	assert.Len(t, s.Relationships, 2)
}

func TestIsValidDomain(t *testing.T) {
	for _, d := range ValidDomains {
		assert.True(t, IsValidDomain(d))
	}
	assert.False(t, IsValidDomain(Domain("bogus")))
}
