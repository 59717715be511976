package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Post status values understood by the CMS.
const (
	PostStatusDraft   = "draft"
	PostStatusPublish = "publish"
	PostStatusPending = "pending"
	PostStatusPrivate = "private"
)

// TaxonomyKind distinguishes categories from tags during resolution.
type TaxonomyKind string

const (
	KindCategory TaxonomyKind = "category"
	KindTag      TaxonomyKind = "tag"
)

// Category is a proposed or existing category without its server id.
type Category struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent,omitempty"`
	Count       *int   `json:"count,omitempty"`
}

// CategoryRecord is a category as stored by the CMS.
type CategoryRecord struct {
	ID int64 `json:"id"`
	Category
}

// Tag is a proposed or existing tag without its server id.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TagRecord is a tag as stored by the CMS.
type TagRecord struct {
	ID int64 `json:"id"`
	Tag
}

// Draft is a generated article whose taxonomy is still name-only.
type Draft struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Slug       string     `json:"slug"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Date       time.Time  `json:"date"`
	Categories []Category `json:"categories"`
	Tags       []Tag      `json:"tags"`
}

// PublishablePost is the final payload submitted to the CMS. Every taxonomy
// reference is a resolved id.
type PublishablePost struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Slug        string  `json:"slug"`
	Excerpt     string  `json:"excerpt,omitempty"`
	Date        string  `json:"date,omitempty"`
	CategoryIDs []int64 `json:"categories"`
	TagIDs      []int64 `json:"tags"`
	Status      string  `json:"status"`
}

// RenderedText decodes both plain strings and {"rendered": "..."} objects,
// which the CMS uses interchangeably for titles and content.
type RenderedText string

func (r *RenderedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RenderedText(s)
		return nil
	}
	var obj struct {
		Rendered string `json:"rendered"`
		Raw      string `json:"raw"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Rendered == "" {
		obj.Rendered = obj.Raw
	}
	*r = RenderedText(obj.Rendered)
	return nil
}

// PostRecord is the CMS view of an existing post.
type PostRecord struct {
	ID          *int64       `json:"id"`
	Title       RenderedText `json:"title"`
	Content     RenderedText `json:"content,omitempty"`
	Slug        string       `json:"slug"`
	Date        string       `json:"date,omitempty"`
	Modified    string       `json:"modified,omitempty"`
	Status      string       `json:"status,omitempty"`
	Link        string       `json:"link,omitempty"`
	CategoryIDs []int64      `json:"categories"`
	TagIDs      []int64      `json:"tags"`
}

// Session is the cached bearer token obtained by credential exchange.
type Session struct {
	Token    string
	IssuedAt time.Time
}

// SimilarityMatch is the best candidate found while resolving a name.
type SimilarityMatch struct {
	Index int
	Name  string
	Score float64
}

// Brief is the short topical input a draft is generated from.
type Brief struct {
	Title   string `json:"title" yaml:"title"`
	Keyword string `json:"keyword" yaml:"keyword"`
	Idea    string `json:"idea" yaml:"idea"`
	Extra   string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// TaxonomyOutcome records what happened to one proposed category or tag.
type TaxonomyOutcome struct {
	Kind    TaxonomyKind `json:"kind"`
	Name    string       `json:"name"`
	ID      int64        `json:"id,omitempty"`
	Created bool         `json:"created"`
	Err     error        `json:"-"`
}

// Succeeded reports whether the item was resolved to an id.
func (o TaxonomyOutcome) Succeeded() bool { return o.Err == nil && o.ID != 0 }

// PublishResult is what a publish call reports to its caller.
type PublishResult struct {
	Success  bool              `json:"success"`
	PostID   *int64            `json:"post_id,omitempty"`
	Err      error             `json:"-"`
	Taxonomy []TaxonomyOutcome `json:"taxonomy,omitempty"`
}

// Error returns the error message, or "" on success.
func (r PublishResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// PublishRun is the persisted ledger entry for one publish attempt.
type PublishRun struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BriefTitle string     `db:"brief_title" json:"brief_title"`
	Slug       string     `db:"slug" json:"slug,omitempty"`
	PostID     *int64     `db:"post_id" json:"post_id,omitempty"`
	Status     string     `db:"status" json:"status"`
	Success    bool       `db:"success" json:"success"`
	Error      *string    `db:"error" json:"error,omitempty"`
	Trigger    string     `db:"trigger" json:"trigger"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// AIUsageLog represents a record of AI API usage for cost tracking.
type AIUsageLog struct {
	ID           int64      `db:"id"`
	Timestamp    time.Time  `db:"timestamp"`
	ProviderName string     `db:"provider_name"`
	ServiceType  string     `db:"service_type"` // "embedding" or "generation"
	ModelName    string     `db:"model_name"`
	InputTokens  int        `db:"input_tokens"`
	OutputTokens int        `db:"output_tokens"`
	Cost         float64    `db:"cost"`
	RelatedRunID *uuid.UUID `db:"related_run_id"`
}
