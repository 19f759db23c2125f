package core

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// CatalogEntry is a built-in category. The catalog is seeded into the
// categories table by migration; this in-code copy backs description-based
// category inference and demo budget seeding.
type CatalogEntry struct {
	ID   string
	Name string
	Type TransactionType
	Icon string
}

var Catalog = []CatalogEntry{
	{ID: "housing", Name: "Housing", Type: Expense, Icon: "Home"},
	{ID: "transportation", Name: "Transportation", Type: Expense, Icon: "Car"},
	{ID: "food", Name: "Food & Dining", Type: Expense, Icon: "Utensils"},
	{ID: "utilities", Name: "Utilities", Type: Expense, Icon: "Zap"},
	{ID: "entertainment", Name: "Entertainment", Type: Expense, Icon: "Film"},
	{ID: "health", Name: "Health & Fitness", Type: Expense, Icon: "Heart"},
	{ID: "shopping", Name: "Shopping", Type: Expense, Icon: "ShoppingBag"},
	{ID: "personal", Name: "Personal Care", Type: Expense, Icon: "User"},
	{ID: "education", Name: "Education", Type: Expense, Icon: "GraduationCap"},
	{ID: "travel", Name: "Travel", Type: Expense, Icon: "Plane"},
	{ID: "debt", Name: "Debt Payments", Type: Expense, Icon: "CreditCard"},
	{ID: "savings", Name: "Savings", Type: Expense, Icon: "PiggyBank"},
	{ID: "income", Name: "Income", Type: Income, Icon: "DollarSign"},
	{ID: "other", Name: "Other", Type: Expense, Icon: "MoreHorizontal"},
}

// CatalogEntryByID returns the built-in entry for id, if any.
func CatalogEntryByID(id string) (CatalogEntry, bool) {
	for _, e := range Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// inference keywords per category, matched against description tokens.
var categoryKeywords = map[string][]string{
	"food":           {"restaurant", "cafe", "coffee", "grocery", "groceries", "dining", "pizza", "lunch", "dinner"},
	"transportation": {"uber", "lyft", "taxi", "fuel", "gas", "parking", "transit", "train", "bus"},
	"housing":        {"rent", "mortgage", "landlord"},
	"utilities":      {"electric", "electricity", "water", "internet", "phone", "utility"},
	"entertainment":  {"cinema", "movie", "netflix", "spotify", "concert", "game"},
	"health":         {"pharmacy", "doctor", "gym", "fitness", "dental", "medical"},
	"shopping":       {"amazon", "store", "mall", "clothing", "shoes"},
	"education":      {"tuition", "course", "book", "school"},
	"travel":         {"flight", "hotel", "airbnb", "airline"},
	"debt":           {"loan", "credit", "repayment"},
	"income":         {"salary", "payroll", "refund", "deposit"},
}

// maxTokenDistance tolerates small typos in description tokens
// ("grocry" still lands in food).
const maxTokenDistance = 2

// InferCategory maps a free-form transaction description to a catalog
// category id. Tokens are compared against per-category keywords, exact
// first, then by levenshtein distance. Unmatched descriptions fall into
// "other".
func InferCategory(description string) string {
	tokens := strings.Fields(strings.ToLower(description))
	if len(tokens) == 0 {
		return "other"
	}

	// Iterate the catalog, not the keyword map, so a distance tie between
	// two categories always resolves to the same one.
	best := "other"
	bestDist := maxTokenDistance + 1
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?()")
		if tok == "" {
			continue
		}
		for _, e := range Catalog {
			for _, w := range categoryKeywords[e.ID] {
				if tok == w {
					return e.ID
				}
				// Skip the fuzzy pass for very short tokens, where an
				// edit distance of 2 matches almost anything.
				if len(tok) < 5 {
					continue
				}
				if d := levenshtein.ComputeDistance(tok, w); d < bestDist {
					bestDist = d
					best = e.ID
				}
			}
		}
	}
	return best
}
