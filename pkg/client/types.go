package client

import (
	"encoding/json"
	"fmt"
)

// Product is one catalog item as returned by the recommender.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// RecommendResponse is the shared shape of /recommend, /recommend/image and
// /recommend/voice. The optional fields only appear on the upload variants.
type RecommendResponse struct {
	Anchor Product   `json:"anchor"`
	Items  []Product `json:"items"`

	// Image variant
	Understanding string  `json:"understanding,omitempty"`
	Query         string  `json:"query,omitempty"`
	ImageFilename string  `json:"image_filename,omitempty"`
	ImageSizeKB   float64 `json:"image_size_kb,omitempty"`

	// Voice variant
	Transcription string  `json:"transcription,omitempty"`
	Language      string  `json:"language,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

// ReloadResponse is returned by POST /admin/reload.
type ReloadResponse struct {
	OK          bool `json:"ok"`
	NumProducts int  `json:"num_products"`
}

// CategoryCount is one ["name", count] pair from top_categories.
// The backend serializes these as heterogeneous two-element arrays.
type CategoryCount struct {
	Name  string
	Count int
}

// UnmarshalJSON decodes the [string, number] pair form.
func (cc *CategoryCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("category pair: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &cc.Name); err != nil {
		return fmt.Errorf("category name: %w", err)
	}
	var count float64
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("category count: %w", err)
	}
	cc.Count = int(count)
	return nil
}

// MarshalJSON re-encodes the pair form for symmetry.
func (cc CategoryCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{cc.Name, cc.Count})
}

// CategoryMapperStats describes the backend's LLM category-mapper cache.
type CategoryMapperStats struct {
	TotalCached   int    `json:"total_cached"`
	ValidCached   int    `json:"valid_cached"`
	ExpiredCached int    `json:"expired_cached"`
	CacheFile     string `json:"cache_file"`
}

// StatsResponse is returned by GET /admin/stats.
type StatsResponse struct {
	NumProducts    int                  `json:"num_products"`
	TopCategories  []CategoryCount      `json:"top_categories"`
	CategoryMapper *CategoryMapperStats `json:"category_mapper,omitempty"`
}

// ClearCacheResponse is returned by POST /admin/clear_category_cache.
type ClearCacheResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
