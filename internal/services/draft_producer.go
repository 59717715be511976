package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"autopress/internal/config"
	"autopress/internal/costtracker"
	"autopress/internal/models"
	"autopress/internal/util"
)

// DefaultDraftPrompt is used when no prompt file is configured.
const DefaultDraftPrompt = `You are an expert content writer and SEO specialist.
Write one complete, SEO-optimized blog post about the topic given by the user.

Rules:
- Use the user's input as the topic directly; if it is short, infer a suitable angle.
- Write in the language of the user's input.
- Content is HTML: use <h2>, <h3>, <p>, <ul>, <li>, <strong>, <em>. Do not include <html> or <body>.
- Put the main keyword in the title and the first paragraph.
- The excerpt is a meta description of at most 160 characters.
- The slug is lower-case, URL-safe, words separated by hyphens.
- Propose exactly one category and three to five tags, by name.

Respond with a single JSON object:
{"title": "...", "slug": "...", "excerpt": "...", "content": "...",
 "categories": [{"name": "...", "slug": "...", "description": "..."}],
 "tags": [{"name": "...", "slug": "..."}]}`

var slugPattern = regexp.MustCompile(`^[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*$`)

// validSlug accepts lower-case letters of any script, digits and single hyphens.
func validSlug(s string) bool {
	return slugPattern.MatchString(s) && s == strings.ToLower(s)
}

func slugRule(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !validSlug(s) {
		return errors.New("must be lower-case words joined by hyphens")
	}
	return nil
}

// ChatCompletionCreator is the part of the OpenAI client the producer needs.
type ChatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIDraftProducer implements DraftProducer with a JSON-mode chat completion.
type OpenAIDraftProducer struct {
	client      ChatCompletionCreator
	model       string
	prompt      string
	temperature float32

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
	now         func() time.Time
}

// NewOpenAIDraftProducer creates a producer. An empty prompt selects DefaultDraftPrompt.
func NewOpenAIDraftProducer(client ChatCompletionCreator, model, prompt string, temperature float32, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAIDraftProducer {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultDraftPrompt
	}
	if costTracker == nil {
		costTracker = costtracker.New(nil)
	}
	return &OpenAIDraftProducer{
		client:      client,
		model:       model,
		prompt:      prompt,
		temperature: temperature,
		costTracker: costTracker,
		pricing:     pricing,
		now:         time.Now,
	}
}

type draftWire struct {
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	Excerpt    string         `json:"excerpt"`
	Content    string         `json:"content"`
	Categories []taxonomyWire `json:"categories"`
	Tags       []taxonomyWire `json:"tags"`
}

type taxonomyWire struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// trim strips surrounding whitespace so that blank fields fail Required.
func (d *draftWire) trim() {
	d.Title = strings.TrimSpace(d.Title)
	d.Slug = strings.TrimSpace(d.Slug)
	d.Excerpt = strings.TrimSpace(d.Excerpt)
	d.Content = strings.TrimSpace(d.Content)
	for i := range d.Categories {
		d.Categories[i].Name = strings.TrimSpace(d.Categories[i].Name)
		d.Categories[i].Slug = strings.TrimSpace(d.Categories[i].Slug)
	}
	for i := range d.Tags {
		d.Tags[i].Name = strings.TrimSpace(d.Tags[i].Name)
		d.Tags[i].Slug = strings.TrimSpace(d.Tags[i].Slug)
	}
}

func (d draftWire) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required),
		validation.Field(&d.Content, validation.Required),
		validation.Field(&d.Slug, validation.Required, validation.By(slugRule)),
		validation.Field(&d.Categories),
		validation.Field(&d.Tags),
	)
}

func (t taxonomyWire) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required),
	)
}

// Produce generates a draft for brief. Provider failures surface as
// *models.DependencyError, malformed output as *models.GenerationError.
func (p *OpenAIDraftProducer) Produce(ctx context.Context, brief string) (models.Draft, error) {
	if strings.TrimSpace(brief) == "" {
		return models.Draft{}, &models.GenerationError{Reason: "empty brief"}
	}
	if p.client == nil {
		return models.Draft{}, &models.DependencyError{Dependency: "generation", Err: errors.New("OpenAI client is not initialized (missing API key)")}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompt},
			{Role: openai.ChatMessageRoleUser, Content: brief},
		},
	})
	if err != nil {
		return models.Draft{}, &models.DependencyError{Dependency: "generation", Err: err}
	}
	p.recordUsage(ctx, resp.Usage)

	if len(resp.Choices) == 0 {
		return models.Draft{}, &models.GenerationError{Reason: "no choices returned", Err: models.ErrEmptyDraft}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return models.Draft{}, &models.GenerationError{Reason: "empty completion", Err: models.ErrEmptyDraft}
	}

	var wire draftWire
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &wire); err != nil {
		return models.Draft{}, &models.GenerationError{Reason: "response is not valid JSON", Err: err}
	}
	wire.trim()
	// Models often return a usable title but a sloppy slug.
	if !validSlug(wire.Slug) {
		wire.Slug = util.Slugify(firstNonEmpty(wire.Slug, wire.Title))
	}
	if err := wire.Validate(); err != nil {
		return models.Draft{}, &models.GenerationError{Reason: "response failed validation", Err: err}
	}

	draft := models.Draft{
		Title:   wire.Title,
		Content: wire.Content,
		Slug:    wire.Slug,
		Excerpt: wire.Excerpt,
		Date:    p.now(),
	}
	for _, c := range wire.Categories {
		draft.Categories = append(draft.Categories, models.Category{
			Name:        c.Name,
			Slug:        firstNonEmpty(c.Slug, util.Slugify(c.Name)),
			Description: c.Description,
		})
	}
	for _, t := range wire.Tags {
		draft.Tags = append(draft.Tags, models.Tag{
			Name: t.Name,
			Slug: firstNonEmpty(t.Slug, util.Slugify(t.Name)),
		})
	}
	log.Infof("Generated draft %q (%d categories, %d tags)", draft.Title, len(draft.Categories), len(draft.Tags))
	return draft, nil
}

func (p *OpenAIDraftProducer) recordUsage(ctx context.Context, usage openai.Usage) {
	if usage.TotalTokens == 0 {
		return
	}
	cost, ok := costtracker.Price(p.pricing, p.model, usage.PromptTokens, usage.CompletionTokens)
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost for generation.", p.model)
		return
	}
	if err := p.costTracker.RecordCost(ctx, costtracker.CostEvent{
		Operation:    models.ServiceTypeGeneration,
		Provider:     "openai",
		Model:        p.model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		AmountUSD:    cost,
	}); err != nil {
		log.Errorf("Failed to record AI usage log for generation: %v", err)
	}
}

// RenderBrief formats a structured brief as the user message.
func RenderBrief(b models.Brief) string {
	var sb strings.Builder
	if b.Title != "" {
		fmt.Fprintf(&sb, "Post title: %s\n", strings.TrimSpace(b.Title))
	}
	if b.Keyword != "" {
		fmt.Fprintf(&sb, "Main keyword: %s\n", strings.TrimSpace(b.Keyword))
	}
	if b.Idea != "" {
		fmt.Fprintf(&sb, "Short explanation: %s\n", strings.TrimSpace(b.Idea))
	}
	if b.Extra != "" {
		sb.WriteString(strings.TrimSpace(b.Extra))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
