package searchapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"

	"github.com/felixgeelhaar/glance/internal/catalog"
)

// Product is a search result.
type Product = catalog.Product

// SearchType selects the search modality.
type SearchType string

const (
	TextSearch  SearchType = "text_search"
	ImageSearch SearchType = "image_search"
)

// DefaultPageSize is the number of results requested per page.
const DefaultPageSize = 20

// ImageFilename is the file name sent with every uploaded image.
const ImageFilename = "img.jpg"

// Crop is the region of an uploaded image to search, in percent of the image bounds.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultCrop searches the image minus a 5% margin on every side.
var DefaultCrop = Crop{X: 5, Y: 5, Width: 90, Height: 90}

// SearchRequest is one page of a text or image search.
type SearchRequest struct {
	Type     SearchType
	Query    string
	Image    *catalog.Image
	Offset   int
	Limit    int
	SearchID string
	Filters  catalog.Filters
}

// Page is one page of search results.
type Page struct {
	SearchID string    `json:"search_id,omitempty"`
	Data     []Product `json:"data"`
}

type detailRequest struct {
	ColorHashes []string `json:"color_hashes"`
}

type detailResponse struct {
	Data []Product `json:"data"`
}

type similarRequest struct {
	ColorTextHash string `json:"color_text_hash"`
}

type similarResponse struct {
	SimilarProductResults []Product `json:"similar_product_results"`
}

// encodeText builds the url-encoded body of a text search.
func encodeText(req SearchRequest) (url.Values, error) {
	v := url.Values{}
	v.Set("search_type", string(TextSearch))
	v.Set("query", req.Query)
	v.Set("offset", strconv.Itoa(req.Offset))
	v.Set("limit", strconv.Itoa(req.Limit))
	v.Set("search_id", req.SearchID)
	if err := req.Filters.Encode(v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeImage writes the multipart body of an image search and returns its
// content type.
func encodeImage(w io.Writer, req SearchRequest) (string, error) {
	if req.Image == nil || len(req.Image.Data) == 0 {
		return "", catalog.ErrEmptyImage
	}

	mw := multipart.NewWriter(w)
	fields := []catalog.Field{
		{Key: "search_type", Value: string(ImageSearch)},
		{Key: "query", Value: req.Query},
		{Key: "offset", Value: strconv.Itoa(req.Offset)},
		{Key: "limit", Value: strconv.Itoa(req.Limit)},
		{Key: "search_id", Value: req.SearchID},
	}
	filterFields, err := req.Filters.Fields()
	if err != nil {
		return "", err
	}
	fields = append(fields, filterFields...)

	coords, err := json.Marshal(DefaultCrop)
	if err != nil {
		return "", fmt.Errorf("failed to encode coordinates: %w", err)
	}
	fields = append(fields, catalog.Field{Key: "coordinates", Value: string(coords)})

	for _, f := range fields {
		if err := mw.WriteField(f.Key, f.Value); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.Key, err)
		}
	}

	part, err := mw.CreateFormFile("file", ImageFilename)
	if err != nil {
		return "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

func encodeJSON(v any) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return buf, nil
}
