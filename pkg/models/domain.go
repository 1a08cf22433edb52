package models

// Domain is a coarse business-area tag used to scope prompt context and
// table fallbacks.
type Domain string

const (
	DomainHR        Domain = "hr"
	DomainInventory Domain = "inventory"
	DomainFinancial Domain = "financial"
	DomainReporting Domain = "reporting"
	DomainGeneral   Domain = "general"
)

// ValidDomains contains all domain tags in classification priority order.
// The order is a deliberate tie-break: many questions contain vocabulary
// from several domains and the first matching set wins.
var ValidDomains = []Domain{
	DomainHR,
	DomainInventory,
	DomainFinancial,
	DomainReporting,
	DomainGeneral,
}

// IsValidDomain checks if the given tag is a known domain.
func IsValidDomain(d Domain) bool {
	for _, v := range ValidDomains {
		if v == d {
			return true
		}
	}
	return false
}
