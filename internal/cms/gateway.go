// Package cms is the typed gateway over the CMS REST surface.
//
// Reads attach the cached token when there is one and never retry. Writes
// require a token; a 401 invalidates it and the request is retried exactly
// once with a fresh token. The gateway creates exactly what it is asked to
// create and performs no deduplication of its own.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"

	"autopress/internal/models"
	"autopress/internal/session"
	"autopress/internal/transport"
)

const (
	postsPath      = "api/posts"
	categoriesPath = "api/categories"
	tagsPath       = "api/tags"

	perPage  = 100
	maxPages = 50
)

// TokenSource is the part of session.Manager the gateway needs.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Cached() (string, bool)
	Invalidate(stale string)
}

// Gateway wraps the CMS REST API.
type Gateway struct {
	client  *transport.Client
	session TokenSource
}

// NewGateway builds a Gateway sharing one session across all calls.
func NewGateway(client *transport.Client, sess TokenSource) *Gateway {
	return &Gateway{client: client, session: sess}
}

// PostQuery holds the optional filters for ListPosts.
type PostQuery struct {
	Slug     string
	Search   string
	Category int64
	Tag      int64
}

func (q PostQuery) values() url.Values {
	v := url.Values{}
	if q.Slug != "" {
		v.Set("slug", q.Slug)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category > 0 {
		v.Set("category", strconv.FormatInt(q.Category, 10))
	}
	if q.Tag > 0 {
		v.Set("tag", strconv.FormatInt(q.Tag, 10))
	}
	return v
}

// ListPosts returns the posts matching q.
func (g *Gateway) ListPosts(ctx context.Context, q PostQuery) ([]models.PostRecord, error) {
	var posts []models.PostRecord
	if err := g.read(ctx, postsPath, q.values(), &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost fetches a single post by id.
func (g *Gateway) GetPost(ctx context.Context, id int64) (*models.PostRecord, error) {
	var post models.PostRecord
	if err := g.read(ctx, postsPath+"/"+strconv.FormatInt(id, 10), nil, &post); err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// ListCategories returns every category, following pagination.
func (g *Gateway) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	cats, err := listAll[models.CategoryRecord](ctx, g, categoriesPath)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetCategory fetches a category by id.
func (g *Gateway) GetCategory(ctx context.Context, id int64) (*models.CategoryRecord, error) {
	var cat models.CategoryRecord
	if err := g.read(ctx, categoriesPath+"/"+strconv.FormatInt(id, 10), nil, &cat); err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &cat, nil
}

// ListTags returns every tag, following pagination.
func (g *Gateway) ListTags(ctx context.Context) ([]models.TagRecord, error) {
	tags, err := listAll[models.TagRecord](ctx, g, tagsPath)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// GetTag fetches a tag by id.
func (g *Gateway) GetTag(ctx context.Context, id int64) (*models.TagRecord, error) {
	var tag models.TagRecord
	if err := g.read(ctx, tagsPath+"/"+strconv.FormatInt(id, 10), nil, &tag); err != nil {
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	return &tag, nil
}

// CreateCategory creates a category and returns the stored record.
func (g *Gateway) CreateCategory(ctx context.Context, cat models.Category) (*models.CategoryRecord, error) {
	var rec models.CategoryRecord
	if err := g.write(ctx, "create category", categoriesPath, cat, &rec); err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, &models.ValidationError{Op: "create category", Err: models.ErrMissingID}
	}
	log.Infof("Created category %q (id=%d)", rec.Name, rec.ID)
	return &rec, nil
}

// CreateTag creates a tag and returns the stored record.
func (g *Gateway) CreateTag(ctx context.Context, tag models.Tag) (*models.TagRecord, error) {
	var rec models.TagRecord
	if err := g.write(ctx, "create tag", tagsPath, tag, &rec); err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, &models.ValidationError{Op: "create tag", Err: models.ErrMissingID}
	}
	log.Infof("Created tag %q (id=%d)", rec.Name, rec.ID)
	return &rec, nil
}

// CreatePost submits the post and returns the CMS-assigned id. A 2xx
// response without an id is a failure.
func (g *Gateway) CreatePost(ctx context.Context, post models.PublishablePost) (int64, error) {
	var raw json.RawMessage
	if err := g.write(ctx, "create post", postsPath, post, &raw); err != nil {
		return 0, err
	}
	var rec models.PostRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, &models.ValidationError{Op: "create post", Status: http.StatusOK, Body: string(raw), Err: err}
	}
	if rec.ID == nil || *rec.ID == 0 {
		return 0, &models.ValidationError{Op: "create post", Status: http.StatusOK, Body: string(raw), Err: models.ErrMissingPostID}
	}
	log.Infof("Created post %q (id=%d, status=%s)", post.Title, *rec.ID, post.Status)
	return *rec.ID, nil
}

// read attaches the cached token when there is one. A rejected token is
// invalidated and the read repeated once anonymously.
func (g *Gateway) read(ctx context.Context, path string, query url.Values, out any) error {
	var header http.Header
	tok, cached := g.session.Cached()
	if cached {
		header = session.BearerHeader(tok)
	}
	err := g.client.Get(ctx, path, query, header, out)
	if cached && transport.IsStatus(err, http.StatusUnauthorized) {
		log.Warnf("GET %s: cached token rejected, retrying without it", path)
		g.session.Invalidate(tok)
		err = g.client.Get(ctx, path, query, nil, out)
	}
	switch {
	case transport.IsStatus(err, http.StatusUnauthorized):
		return &models.AuthError{Op: "read " + path, Status: http.StatusUnauthorized, Err: err}
	case transport.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	return err
}

func listAll[T any](ctx context.Context, g *Gateway, path string) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))
		var batch []T
		if err := g.read(ctx, path, q, &batch); err != nil {
			// Past the last page the CMS answers 400; the earlier pages are complete.
			if page > 1 && transport.IsStatus(err, http.StatusBadRequest) {
				break
			}
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

func (g *Gateway) write(ctx context.Context, op, path string, body, out any) error {
	for attempt := 0; ; attempt++ {
		tok, err := g.session.Token(ctx)
		if err != nil {
			return err
		}
		err = g.client.Post(ctx, path, body, session.BearerHeader(tok), out)
		if err == nil {
			return nil
		}
		if transport.IsStatus(err, http.StatusUnauthorized) {
			if attempt == 0 {
				log.Warnf("%s: token rejected, re-authenticating", op)
				g.session.Invalidate(tok)
				continue
			}
			return &models.AuthError{Op: op, Status: http.StatusUnauthorized, Err: err}
		}
		return classifyWriteError(op, err)
	}
}

func classifyWriteError(op string, err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
		return &models.ValidationError{Op: op, Status: se.Code, Body: se.Body}
	}
	var de *transport.DecodeError
	if errors.As(err, &de) {
		return &models.ValidationError{Op: op, Status: http.StatusOK, Body: de.Body, Err: de.Err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
