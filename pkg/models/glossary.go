package models

// BusinessTerm maps a physical table name to its human business vocabulary.
// Loaded once at process start from the business terms resource; immutable
// thereafter. Physical names are unique, business names need not be.
type BusinessTerm struct {
	TableName    string `yaml:"table" json:"table"`
	BusinessName string `yaml:"business_name" json:"business_name"`
}

// Synonym seeds an extra keyword → table mapping that the derived indexes
// cannot infer from naming alone (e.g. "supplier" → a shared parties table).
type Synonym struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Table   string `yaml:"table" json:"table"`
}
