package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Decode(t *testing.T) {
	raw := `{
		"id": 7,
		"image": "https://cdn.example.com/7.jpg",
		"brand_name": "Zara",
		"title": "Red dress",
		"price": "1299.00",
		"discounted_price": 999,
		"primary_images": ["a.jpg", "b.jpg"],
		"variant_value_1": "M",
		"variant_value_2": "red",
		"color_text_hash": "abc123"
	}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, 7, p.ID)
	assert.Equal(t, Amount("1299.00"), p.Price)
	assert.Equal(t, Amount("999"), p.DiscountedPrice)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.PrimaryImages)
	assert.Equal(t, "abc123", p.ColorTextHash)
}

func TestProduct_DisplayPrice(t *testing.T) {
	t.Run("discount wins", func(t *testing.T) {
		p := Product{Price: "100", DiscountedPrice: "80"}
		d, ok := p.DisplayPrice()
		require.True(t, ok)
		assert.Equal(t, "80", d.String())
		assert.True(t, p.Discounted())
		assert.Equal(t, Amount("100"), p.Price, "list price is retained")
	})

	t.Run("list price", func(t *testing.T) {
		p := Product{Price: "100"}
		d, ok := p.DisplayPrice()
		require.True(t, ok)
		assert.Equal(t, "100", d.String())
		assert.False(t, p.Discounted())
	})

	t.Run("null discount", func(t *testing.T) {
		var p Product
		require.NoError(t, json.Unmarshal([]byte(`{"price":"5","discounted_price":null}`), &p))
		assert.False(t, p.Discounted())
	})

	t.Run("malformed", func(t *testing.T) {
		_, ok := Product{Price: "n/a"}.DisplayPrice()
		assert.False(t, ok)
	})
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0600))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", img.Name)
	assert.Len(t, img.Data, 3)

	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err = LoadImage(empty)
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = LoadImage(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}
