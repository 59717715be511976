package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"autopress/internal/costtracker"
	"autopress/internal/models"
	"autopress/internal/store"
	"autopress/internal/util"
)

// CMS is the part of the CMS gateway the publish pipeline needs.
type CMS interface {
	ListCategories(ctx context.Context) ([]models.CategoryRecord, error)
	ListTags(ctx context.Context) ([]models.TagRecord, error)
	CreateCategory(ctx context.Context, cat models.Category) (*models.CategoryRecord, error)
	CreateTag(ctx context.Context, tag models.Tag) (*models.TagRecord, error)
	CreatePost(ctx context.Context, post models.PublishablePost) (int64, error)
}

// PublishOptions tunes a PublishService.
type PublishOptions struct {
	Status         string // post status sent to the CMS, default draft
	MaxConcurrency int    // taxonomy items resolved in parallel, default 4
}

// PublishService turns drafts into CMS posts. Each Publish call fetches the
// taxonomy fresh and keeps no state between calls.
type PublishService struct {
	cms      CMS
	resolver *TaxonomyResolver
	drafts   DraftProducer
	runs     store.RunStore
	status   string
	limit    int
	now      func() time.Time
}

// NewPublishService wires the pipeline. drafts may be nil when only Publish
// is used; runs may be nil to disable the run ledger.
func NewPublishService(cms CMS, resolver *TaxonomyResolver, drafts DraftProducer, runs store.RunStore, opts PublishOptions) *PublishService {
	if opts.Status == "" {
		opts.Status = models.PostStatusDraft
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if runs == nil {
		runs = store.NoopRunStore{}
	}
	return &PublishService{
		cms:      cms,
		resolver: resolver,
		drafts:   drafts,
		runs:     runs,
		status:   opts.Status,
		limit:    opts.MaxConcurrency,
		now:      time.Now,
	}
}

// Publish resolves the draft's taxonomy against the CMS and creates the
// post. If any category or tag fails to resolve, no post is created, no
// further item is created, and the result carries a
// *models.PartialTaxonomyFailure. Taxonomy items created before the failure
// are kept.
func (s *PublishService) Publish(ctx context.Context, draft models.Draft) models.PublishResult {
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Content) == "" {
		return models.PublishResult{Err: fmt.Errorf("%w: draft needs a title and content", models.ErrValidation)}
	}

	categories, tags, err := s.fetchTaxonomy(ctx)
	if err != nil {
		return models.PublishResult{Err: err}
	}

	outcomes, resolveErr := s.resolveAll(ctx, draft, categories, tags)

	var succeeded, failed []models.TaxonomyOutcome
	var catIDs, tagIDs []int64
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
			continue
		}
		succeeded = append(succeeded, o)
		if o.Kind == models.KindCategory {
			catIDs = appendUnique(catIDs, o.ID)
		} else {
			tagIDs = appendUnique(tagIDs, o.ID)
		}
	}
	if resolveErr != nil || len(failed) > 0 {
		if resolveErr == nil {
			resolveErr = failed[0].Err
		}
		log.Errorf("Taxonomy resolution failed for %d of %d items; post %q not created", len(failed), len(outcomes), draft.Title)
		return models.PublishResult{
			Err:      &models.PartialTaxonomyFailure{Succeeded: succeeded, Failed: failed, Err: resolveErr},
			Taxonomy: outcomes,
		}
	}

	post := s.assemble(draft, catIDs, tagIDs)
	id, err := s.cms.CreatePost(ctx, post)
	if err != nil {
		return models.PublishResult{Err: err, Taxonomy: outcomes}
	}
	log.WithFields(log.Fields{"post_id": id, "slug": post.Slug, "status": post.Status}).Info("Post published")
	return models.PublishResult{Success: true, PostID: &id, Taxonomy: outcomes}
}

// PublishBrief generates a draft from brief and publishes it, recording the
// run in the ledger. A zero runID gets a fresh one.
func (s *PublishService) PublishBrief(ctx context.Context, brief models.Brief, runID uuid.UUID, trigger string) (models.PublishRun, models.PublishResult) {
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	run := models.PublishRun{
		ID:         runID,
		BriefTitle: brief.Title,
		Status:     models.RunStatusRunning,
		Trigger:    trigger,
		StartedAt:  s.now(),
	}
	s.saveRun(ctx, &run)
	logger := log.WithFields(log.Fields{"run_id": runID, "trigger": trigger})
	logger.Infof("Publishing brief %q", brief.Title)

	ctx = costtracker.WithRunID(ctx, runID)
	result := s.generateAndPublish(ctx, brief, &run)

	finished := s.now()
	run.FinishedAt = &finished
	run.Success = result.Success
	run.PostID = result.PostID
	if result.Success {
		run.Status = models.RunStatusSucceeded
		logger.Infof("Run finished: post %d", *result.PostID)
	} else {
		run.Status = models.RunStatusFailed
		msg := result.Error()
		run.Error = &msg
		logger.Errorf("Run failed: %s", msg)
	}
	s.saveRun(ctx, &run)
	return run, result
}

func (s *PublishService) generateAndPublish(ctx context.Context, brief models.Brief, run *models.PublishRun) models.PublishResult {
	if s.drafts == nil {
		return models.PublishResult{Err: &models.DependencyError{Dependency: "generation", Err: errors.New("no draft producer configured")}}
	}
	prompt := RenderBrief(brief)
	if prompt == "" {
		return models.PublishResult{Err: &models.GenerationError{Reason: "empty brief"}}
	}
	draft, err := s.drafts.Produce(ctx, prompt)
	if err != nil {
		return models.PublishResult{Err: err}
	}
	run.Slug = draft.Slug
	return s.Publish(ctx, draft)
}

func (s *PublishService) saveRun(ctx context.Context, run *models.PublishRun) {
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log.Warnf("Failed to record run %s: %v", run.ID, err)
	}
}

func (s *PublishService) fetchTaxonomy(ctx context.Context) ([]models.CategoryRecord, []models.TagRecord, error) {
	var categories []models.CategoryRecord
	var tags []models.TagRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.cms.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.cms.ListTags(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch taxonomy: %w", err)
	}
	return categories, tags, nil
}

type taxonomyItem struct {
	kind     models.TaxonomyKind
	category models.Category
	tag      models.Tag
}

func (t taxonomyItem) name() string {
	if t.kind == models.KindCategory {
		return t.category.Name
	}
	return t.tag.Name
}

// resolveAll resolves every distinct proposed item with bounded parallelism,
// all categories before any tag. Items proposed twice under the same
// normalized name share one outcome, so a single call never creates the same
// name twice. The first failure cancels the in-flight items; items not yet
// started are reported with models.ErrNotAttempted. Outcomes follow proposal
// order, categories first, and err is the first failure.
func (s *PublishService) resolveAll(ctx context.Context, draft models.Draft, categories []models.CategoryRecord, tags []models.TagRecord) ([]models.TaxonomyOutcome, error) {
	var items []taxonomyItem
	seen := make(map[string]bool)
	add := func(it taxonomyItem) {
		key := string(it.kind) + ":" + util.NormalizeName(it.name())
		if util.NormalizeName(it.name()) == "" {
			log.Debugf("Skipping %s with empty name", it.kind)
			return
		}
		if seen[key] {
			return
		}
		seen[key] = true
		items = append(items, it)
	}
	for _, c := range draft.Categories {
		add(taxonomyItem{kind: models.KindCategory, category: c})
	}
	for _, t := range draft.Tags {
		add(taxonomyItem{kind: models.KindTag, tag: t})
	}

	outcomes := make([]models.TaxonomyOutcome, len(items))
	for i, it := range items {
		outcomes[i] = models.TaxonomyOutcome{Kind: it.kind, Name: strings.TrimSpace(it.name()), Err: models.ErrNotAttempted}
	}

	if err := s.resolvePhase(ctx, models.KindCategory, items, outcomes, categories, tags); err != nil {
		return outcomes, err
	}
	return outcomes, s.resolvePhase(ctx, models.KindTag, items, outcomes, categories, tags)
}

// resolvePhase resolves the items of one kind and waits for all of them.
// Each goroutine writes only its own outcome slot.
func (s *PublishService) resolvePhase(ctx context.Context, kind models.TaxonomyKind, items []taxonomyItem, outcomes []models.TaxonomyOutcome, categories []models.CategoryRecord, tags []models.TagRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, it := range items {
		if it.kind != kind {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			var o models.TaxonomyOutcome
			if kind == models.KindCategory {
				o = s.resolveCategory(gctx, it.category, categories)
			} else {
				o = s.resolveTag(gctx, it.tag, tags)
			}
			outcomes[i] = o
			return o.Err
		})
	}
	return g.Wait()
}

func (s *PublishService) resolveCategory(ctx context.Context, cat models.Category, existing []models.CategoryRecord) models.TaxonomyOutcome {
	cat.Name = strings.TrimSpace(cat.Name)
	out := models.TaxonomyOutcome{Kind: models.KindCategory, Name: cat.Name}

	match, err := s.resolver.ResolveCategory(ctx, cat.Name, existing)
	if err != nil {
		out.Err = err
		return out
	}
	if match != nil {
		log.Infof("Category %q reuses existing %q (id=%d)", cat.Name, match.Name, match.ID)
		out.ID = match.ID
		return out
	}

	if cat.Slug == "" {
		cat.Slug = util.Slugify(cat.Name)
	}
	rec, err := s.cms.CreateCategory(ctx, cat)
	if err != nil {
		out.Err = err
		return out
	}
	out.ID, out.Created = rec.ID, true
	return out
}

func (s *PublishService) resolveTag(ctx context.Context, tag models.Tag, existing []models.TagRecord) models.TaxonomyOutcome {
	tag.Name = strings.TrimSpace(tag.Name)
	out := models.TaxonomyOutcome{Kind: models.KindTag, Name: tag.Name}

	match, err := s.resolver.ResolveTag(ctx, tag.Name, existing)
	if err != nil {
		out.Err = err
		return out
	}
	if match != nil {
		log.Infof("Tag %q reuses existing %q (id=%d)", tag.Name, match.Name, match.ID)
		out.ID = match.ID
		return out
	}

	if tag.Slug == "" {
		tag.Slug = util.Slugify(tag.Name)
	}
	rec, err := s.cms.CreateTag(ctx, tag)
	if err != nil {
		out.Err = err
		return out
	}
	out.ID, out.Created = rec.ID, true
	return out
}

func (s *PublishService) assemble(draft models.Draft, catIDs, tagIDs []int64) models.PublishablePost {
	slug := draft.Slug
	if slug == "" {
		slug = util.Slugify(draft.Title)
	}
	excerpt := draft.Excerpt
	if excerpt == "" {
		excerpt = BuildExcerpt(draft.Content, ExcerptLength)
	}
	var date string
	if !draft.Date.IsZero() {
		date = draft.Date.Format("2006-01-02T15:04:05")
	}
	if catIDs == nil {
		catIDs = []int64{}
	}
	if tagIDs == nil {
		tagIDs = []int64{}
	}
	return models.PublishablePost{
		Title:       draft.Title,
		Content:     draft.Content,
		Slug:        slug,
		Excerpt:     excerpt,
		Date:        date,
		CategoryIDs: catIDs,
		TagIDs:      tagIDs,
		Status:      s.status,
	}
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
