package order

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ovenworks/breadstore/internal/domain/payment"
	"github.com/ovenworks/breadstore/internal/domain/product"
)

// ValidationError reports malformed or missing input. User-correctable;
// rendered as an actionable message, never logged as a system error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	zipPattern   = regexp.MustCompile(`^\d{5}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// usStates is the set of valid USPS state abbreviations (50 states + DC).
var usStates = map[string]struct{}{}

func init() {
	for _, s := range strings.Fields(
		`AL AK AZ AR CA CO CT DE FL GA HI ID IL IN IA KS KY LA ME MD
		 MA MI MN MS MO MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC
		 SD TN TX UT VT VA WA WV WI WY DC`) {
		usStates[s] = struct{}{}
	}
}

// Storage length bounds. Free-text fields are truncated to these rune
// prefixes before persistence; a data-integrity safeguard, not validation.
const (
	maxNameLen    = 100
	maxEmailLen   = 200
	maxAddressLen = 200
	maxCityLen    = 100
	maxStateLen   = 2
	maxZipLen     = 10
	maxPhoneLen   = 20
	maxAmountLen  = 50
	maxTxHashLen  = 100
	maxNotesLen   = 500
)

// DraftItem is a requested order line. The client-quoted price is advisory
// and replaced by the catalog price server-side.
type DraftItem struct {
	Product string
	Qty     int
	Price   decimal.Decimal
}

// Draft is an incoming, untrusted order request.
type Draft struct {
	CustomerName   string
	Email          string
	Address        string
	City           string
	State          string
	Zip            string
	Phone          string
	Items          []DraftItem
	ShippingOption string
	PaymentMethod  string
	PaymentAmount  string
	// TotalUSD is the client's quoted total. Untrusted; the stored total is
	// always recomputed from the catalog and shipping rate.
	TotalUSD decimal.Decimal
	TxHash   string
	Notes    string
}

// Quantity sums requested line quantities.
func (d *Draft) Quantity() int {
	total := 0
	for _, it := range d.Items {
		total += it.Qty
	}
	return total
}

// Validate checks the draft against the input constraints. It returns the
// first violation as a *ValidationError.
func (d *Draft) Validate() error {
	type check struct {
		field, message string
		ok             bool
	}
	state := strings.ToUpper(strings.TrimSpace(d.State))
	_, stateOK := usStates[state]
	_, shippingOK := ShippingRate(d.ShippingOption)
	_, methodErr := payment.OptionByID(d.PaymentMethod)

	checks := []check{
		{"customer_name", "required", strings.TrimSpace(d.CustomerName) != ""},
		{"email", "invalid email", emailPattern.MatchString(d.Email)},
		{"address", "at least 5 characters required", len(strings.TrimSpace(d.Address)) >= 5},
		{"city", "required", strings.TrimSpace(d.City) != ""},
		{"state", "valid two-letter US state required", stateOK},
		{"zip", "5-digit US zip required", zipPattern.MatchString(d.Zip)},
		{"phone", "10-20 characters required", len(d.Phone) >= 10 && len(d.Phone) <= maxPhoneLen},
		{"items", "non-empty list required", len(d.Items) > 0},
		{"shipping_option", "must be overnight or 2day", shippingOK},
		{"payment_method", "unknown payment method", methodErr == nil},
		{"total_usd", "must be non-negative", !d.TotalUSD.IsNegative()},
	}
	for _, c := range checks {
		if !c.ok {
			return &ValidationError{Field: c.field, Message: c.message}
		}
	}

	for _, it := range d.Items {
		if it.Qty <= 0 {
			return &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("quantity must be greater than 0 for %q", it.Product),
			}
		}
		if !product.Exists(it.Product) {
			return &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("unknown product %q", it.Product),
			}
		}
	}
	return nil
}

// build converts a validated draft into an Order with server-derived
// pricing, chain and truncated fields. The returned order has no ID,
// timestamp or status; the service assigns those.
func (d *Draft) build() (*Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	items := make([]Item, len(d.Items))
	subtotal := decimal.Zero
	for i, it := range d.Items {
		p, err := product.ByID(it.Product)
		if err != nil {
			return nil, &ValidationError{Field: "items", Message: err.Error()}
		}
		items[i] = Item{Product: p.ID, Qty: it.Qty, Price: p.Price}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	rate, _ := ShippingRate(d.ShippingOption)
	total := subtotal.Add(rate).Round(2)

	return &Order{
		CustomerName:   truncate(strings.TrimSpace(d.CustomerName), maxNameLen),
		Email:          truncate(d.Email, maxEmailLen),
		Address:        truncate(strings.TrimSpace(d.Address), maxAddressLen),
		City:           truncate(strings.TrimSpace(d.City), maxCityLen),
		State:          truncate(strings.ToUpper(strings.TrimSpace(d.State)), maxStateLen),
		Zip:            truncate(d.Zip, maxZipLen),
		Phone:          truncate(d.Phone, maxPhoneLen),
		Items:          items,
		ShippingOption: d.ShippingOption,
		PaymentMethod:  d.PaymentMethod,
		PaymentChain:   payment.DeriveChain(d.PaymentMethod),
		PaymentAmount:  truncate(d.PaymentAmount, maxAmountLen),
		TotalUSD:       total,
		TxHash:         truncate(d.TxHash, maxTxHashLen),
		Notes:          truncate(d.Notes, maxNotesLen),
	}, nil
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
