// Package catalog holds the product model returned by the search API and the
// client-side filters that are merged into every search request.
package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyImage is returned when an image asset carries no data.
var ErrEmptyImage = errors.New("image is empty")

// Amount is a decimal price as sent by the API. The server normally sends
// strings, but bare JSON numbers are accepted too.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "amount")
	}
	*a = Amount(n.String())
	return nil
}

// Decimal parses the amount. The zero value and malformed amounts report ok=false.
func (a Amount) Decimal() (decimal.Decimal, bool) {
	if a == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Product is a search result. It is read-only to the client.
type Product struct {
	ID              int      `json:"id"`
	Image           string   `json:"image"`
	BrandName       string   `json:"brand_name,omitempty"`
	Title           string   `json:"title"`
	Price           Amount   `json:"price"`
	DiscountedPrice Amount   `json:"discounted_price,omitempty"`
	Description     string   `json:"description,omitempty"`
	Link            string   `json:"link,omitempty"`
	PrimaryImages   []string `json:"primary_images,omitempty"`
	VariantValue1   string   `json:"variant_value_1,omitempty"`
	VariantValue2   string   `json:"variant_value_2,omitempty"`
	ColorTextHash   string   `json:"color_text_hash,omitempty"`
}

// Discounted reports whether the product carries a usable discounted price.
func (p Product) Discounted() bool {
	_, ok := p.DiscountedPrice.Decimal()
	return ok
}

// DisplayPrice returns the discounted price when present, the list price otherwise.
// Both prices stay on the product; this only decides which one is shown.
func (p Product) DisplayPrice() (decimal.Decimal, bool) {
	if d, ok := p.DiscountedPrice.Decimal(); ok {
		return d, true
	}
	return p.Price.Decimal()
}

// Image is a photo submitted for an image search.
type Image struct {
	Name string
	Data []byte
}

// LoadImage reads an image file from disk.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrEmptyImage, "%s", path)
	}
	return &Image{Name: filepath.Base(path), Data: data}, nil
}
