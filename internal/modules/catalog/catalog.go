package catalog

import "github.com/shopspring/decimal"

// Entry is the allowed pricing for one service. TestPrice is a nominal
// amount accepted only so sandbox runs don't charge the full fee.
type Entry struct {
	Price     decimal.Decimal
	TestPrice decimal.Decimal
}

var services = map[string]Entry{
	"Complete Self-Awareness Report": entry(499),
	"Astrology Consultation":         entry(499),
	"Numerology Report":              entry(499),
	"Complete Life Reading":          entry(499),
}

func entry(price int64) Entry {
	return Entry{
		Price:     decimal.NewFromInt(price),
		TestPrice: decimal.NewFromInt(1),
	}
}

// Lookup returns the catalog entry for a service, if it exists.
func Lookup(serviceType string) (Entry, bool) {
	e, ok := services[serviceType]
	return e, ok
}

// Validate reports whether amount is exactly the production price or the
// test price for the named service. Unknown service names are rejected;
// there is no fallback set of globally accepted amounts.
func Validate(serviceType string, amount decimal.Decimal) bool {
	e, ok := services[serviceType]
	if !ok {
		return false
	}
	return amount.Equal(e.Price) || amount.Equal(e.TestPrice)
}

// ValidateFloat adapts Validate for JSON-decoded amounts. The float is
// compared as-is: an amount with sub-paisa precision such as 498.995 is
// not "close enough" to the catalog price, it is a mismatch.
func ValidateFloat(serviceType string, amount float64) bool {
	d := decimal.NewFromFloat(amount)
	if !d.Equal(d.Round(2)) {
		return false
	}
	return Validate(serviceType, d)
}
