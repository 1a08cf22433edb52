package models

import "time"

// SchemaSnapshot is the full introspected schema of one database.
// A snapshot is immutable once constructed: cache refreshes replace it
// wholesale, never mutate it in place.
type SchemaSnapshot struct {
	Database      string                `json:"database"`
	Tables        map[string]*TableInfo `json:"tables"`
	Relationships []Relationship        `json:"relationships"`
	FetchedAt     time.Time             `json:"fetched_at"`
}

// TableInfo describes one table: columns, keys, and representative sample rows.
type TableInfo struct {
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key"`
	ForeignKeys []ForeignKey     `json:"foreign_keys"`
	SampleRows  []map[string]any `json:"sample_rows,omitempty"`
}

// ColumnInfo describes one column.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"type"`
	IsNullable   bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"primary_key"`
}

// ForeignKey describes an outgoing foreign key constraint.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Relationship is a flattened foreign-key edge across the whole snapshot.
type Relationship struct {
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// Age returns how long ago the snapshot was fetched.
func (s *SchemaSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// TableNames returns the snapshot's table names. Order is not defined.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	return names
}

// Filtered returns a new snapshot restricted to the given tables plus the
// relationships touching them. Unknown table names are ignored.
func (s *SchemaSnapshot) Filtered(tables map[string]struct{}) *SchemaSnapshot {
	out := &SchemaSnapshot{
		Database:  s.Database,
		Tables:    make(map[string]*TableInfo, len(tables)),
		FetchedAt: s.FetchedAt,
	}
	for name := range tables {
		if info, ok := s.Tables[name]; ok {
			out.Tables[name] = info
		}
	}
	for _, rel := range s.Relationships {
		_, src := tables[rel.SourceTable]
		_, tgt := tables[rel.TargetTable]
		if src || tgt {
			out.Relationships = append(out.Relationships, rel)
		}
	}
	return out
}
