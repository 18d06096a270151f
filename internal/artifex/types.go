package artifex

import "time"

// User is the authenticated user as reported by GET /me.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// Organization is the tenant the authenticated user belongs to.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Asset is a single digital asset.
type Asset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	FileType     string    `json:"file_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// AssetPage is one page of search results.
type AssetPage struct {
	Assets  []Asset `json:"assets"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}

// Collection is a named grouping of assets.
type Collection struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug,omitempty"`
	AssetCount int    `json:"asset_count,omitempty"`
}
