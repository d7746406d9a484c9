package domain

import (
	"encoding/base64"
	"encoding/json"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

// PaginationOptions selects one page of keys in key order.
type PaginationOptions struct {
	After    string `json:"after,omitempty"` // opaque cursor from Page.NextCursor
	Limit    int    `json:"limit,omitempty"`
	MaxLimit int    `json:"max_limit,omitempty"`
}

// Page is one slice of the key space.
type Page struct {
	Keys       []string `json:"keys"`
	HasNext    bool     `json:"has_next"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Cursor names the last key of a page. Keys are opaque bytes, so the
// cursor travels as URL-safe base64 of a small JSON object.
type Cursor struct {
	Key string `json:"k"`
}

func EncodeCursor(c Cursor) string {
	data, _ := json.Marshal(c) // a struct of one string always marshals
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeCursor(encoded string) (Cursor, error) {
	var c Cursor
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return c, Invalidf("malformed cursor %q", encoded)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, Invalidf("malformed cursor %q: %v", encoded, err)
	}
	return c, nil
}

func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{Limit: DefaultPageLimit, MaxLimit: MaxPageLimit}
}

// Validate rejects a negative limit, then fills in defaults and clamps
// Limit to MaxLimit.
func (po *PaginationOptions) Validate() error {
	switch {
	case po.Limit < 0:
		return Invalidf("limit %d is negative", po.Limit)
	case po.Limit == 0:
		po.Limit = DefaultPageLimit
	}
	if po.MaxLimit <= 0 {
		po.MaxLimit = MaxPageLimit
	}
	po.Limit = min(po.Limit, po.MaxLimit)
	return nil
}

// AfterKey returns the key the page starts after, or "" for the first page.
func (po *PaginationOptions) AfterKey() (string, error) {
	if po.After == "" {
		return "", nil
	}
	c, err := DecodeCursor(po.After)
	return c.Key, err
}
