package kata

import (
	"encoding/json"
	"fmt"
	"io"
)

// Record is one completed challenge as listed by the platform.
type Record struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Slug               string   `json:"slug"`
	CompletedAt        string   `json:"completedAt"`
	CompletedLanguages []string `json:"completedLanguages"`
}

// Page is a decoded completed-challenges response. Pointer and nil fields
// distinguish absent keys from zero values.
type Page struct {
	Success    *bool    `json:"success,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Data       []Record `json:"data"`
	TotalPages *int     `json:"totalPages,omitempty"`
	TotalItems *int     `json:"totalItems,omitempty"`
}

// DecodePage reads a page body. Undecodable input is reported as a
// Malformed *APIError.
func DecodePage(r io.Reader) (*Page, error) {
	var p Page
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, &APIError{Kind: Malformed, Reason: fmt.Sprintf("decode page: %v", err)}
	}
	return &p, nil
}

// validate checks the fields a check relies on. Count checks additionally
// need totalItems; slug checks need totalPages.
func (p *Page) validate(kind QueryKind) error {
	if p.Success != nil && !*p.Success {
		return &APIError{Kind: Declined, Reason: p.Reason}
	}
	if p.Data == nil {
		return &APIError{Kind: Malformed, Reason: "missing data"}
	}
	switch kind {
	case BySlug:
		if p.TotalPages == nil {
			return &APIError{Kind: Malformed, Reason: "missing totalPages"}
		}
	case ByCount:
		if p.TotalItems == nil {
			return &APIError{Kind: Malformed, Reason: "missing totalItems"}
		}
	}
	return nil
}

// QueryKind selects what a run checks for.
type QueryKind int

const (
	BySlug QueryKind = iota + 1
	ByCount
)

func (k QueryKind) String() string {
	switch k {
	case BySlug:
		return "slug"
	case ByCount:
		return "count"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// Query is the completion condition applied to every roster entry.
type Query struct {
	Kind QueryKind
	Slug string
	N    int
}

// SlugQuery asks whether the challenge with the given slug was completed.
func SlugQuery(slug string) Query { return Query{Kind: BySlug, Slug: slug} }

// CountQuery asks whether at least n challenges were completed.
func CountQuery(n int) Query { return Query{Kind: ByCount, N: n} }

func (q Query) Validate() error {
	switch q.Kind {
	case BySlug:
		if q.Slug == "" {
			return fmt.Errorf("slug is required")
		}
	case ByCount:
		if q.N < 0 {
			return fmt.Errorf("n must be >= 0, got %d", q.N)
		}
	default:
		return fmt.Errorf("unknown query kind: %s", q.Kind)
	}
	return nil
}
