package catalog

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidFilters is returned when a filter set violates its constraints.
var ErrInvalidFilters = errors.New("invalid filters")

// Request keys used for filters.
const (
	KeyBrand    = "brand"
	KeyPriceMin = "price_min"
	KeyPriceMax = "price_max"
)

// Filters are client-chosen constraints merged into every search request.
// Brands are lower-cased and deduplicated; insertion order is kept.
type Filters struct {
	Brands   []string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}

// Field is one encoded request parameter.
type Field struct {
	Key   string
	Value string
}

// NewFilters normalizes and validates a filter set.
func NewFilters(brands []string, priceMin, priceMax *decimal.Decimal) (Filters, error) {
	f := Filters{Brands: brands, PriceMin: priceMin, PriceMax: priceMax}.Normalize()
	if err := f.Validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// Normalize trims, lower-cases and deduplicates brands and drops empty ones.
func (f Filters) Normalize() Filters {
	out := Filters{PriceMin: f.PriceMin, PriceMax: f.PriceMax}
	seen := make(map[string]struct{}, len(f.Brands))
	for _, b := range f.Brands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out.Brands = append(out.Brands, b)
	}
	return out
}

// Validate checks the price bounds.
func (f Filters) Validate() error {
	if f.PriceMin != nil && f.PriceMin.IsNegative() {
		return errors.Wrapf(ErrInvalidFilters, "price_min %s is negative", f.PriceMin)
	}
	if f.PriceMax != nil && f.PriceMax.IsNegative() {
		return errors.Wrapf(ErrInvalidFilters, "price_max %s is negative", f.PriceMax)
	}
	if f.PriceMin != nil && f.PriceMax != nil && f.PriceMax.LessThan(*f.PriceMin) {
		return errors.Wrapf(ErrInvalidFilters, "price_max %s is below price_min %s", f.PriceMax, f.PriceMin)
	}
	return nil
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Brands) == 0 && f.PriceMin == nil && f.PriceMax == nil
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := Filters{}
	if len(f.Brands) > 0 {
		out.Brands = append([]string(nil), f.Brands...)
	}
	if f.PriceMin != nil {
		v := *f.PriceMin
		out.PriceMin = &v
	}
	if f.PriceMax != nil {
		v := *f.PriceMax
		out.PriceMax = &v
	}
	return out
}

// Fields encodes the filters as request parameters. Unset filters are omitted,
// never sent empty.
func (f Filters) Fields() ([]Field, error) {
	var fields []Field
	if len(f.Brands) > 0 {
		raw, err := encodeBrands(f.Brands)
		if err != nil {
			return nil, errors.Wrap(err, "encode brands")
		}
		fields = append(fields, Field{Key: KeyBrand, Value: raw})
	}
	if f.PriceMin != nil {
		fields = append(fields, Field{Key: KeyPriceMin, Value: f.PriceMin.String()})
	}
	if f.PriceMax != nil {
		fields = append(fields, Field{Key: KeyPriceMax, Value: f.PriceMax.String()})
	}
	return fields, nil
}

// encodeBrands renders brands as a plain JSON array, without HTML escaping.
func encodeBrands(brands []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(brands); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Encode adds the filter fields to a form.
func (f Filters) Encode(v url.Values) error {
	fields, err := f.Fields()
	if err != nil {
		return err
	}
	for _, field := range fields {
		v.Set(field.Key, field.Value)
	}
	return nil
}

// Match reports whether a product satisfies the filters. Products without a
// parseable price never satisfy a price bound.
func (f Filters) Match(p Product) bool {
	if len(f.Brands) > 0 {
		brand := strings.ToLower(strings.TrimSpace(p.BrandName))
		found := false
		for _, b := range f.Brands {
			if b == brand {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PriceMin == nil && f.PriceMax == nil {
		return true
	}
	price, ok := p.DisplayPrice()
	if !ok {
		return false
	}
	if f.PriceMin != nil && price.LessThan(*f.PriceMin) {
		return false
	}
	if f.PriceMax != nil && price.GreaterThan(*f.PriceMax) {
		return false
	}
	return true
}

// String renders the filters for status lines.
func (f Filters) String() string {
	if f.IsZero() {
		return "none"
	}
	var parts []string
	if len(f.Brands) > 0 {
		parts = append(parts, "brand="+strings.Join(f.Brands, ","))
	}
	if f.PriceMin != nil {
		parts = append(parts, "min="+f.PriceMin.String())
	}
	if f.PriceMax != nil {
		parts = append(parts, "max="+f.PriceMax.String())
	}
	return strings.Join(parts, " ")
}

// ParseBrands splits a comma separated brand list.
func ParseBrands(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ParsePrice parses an optional price bound. An empty string or "-" means unset.
func ParsePrice(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFilters, "price %q", s)
	}
	return &d, nil
}
