package clipper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-planner/internal/llm"
	"recipe-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// IDPrefix marks recipes imported from a web page.
const IDPrefix = "clip-"

// Source tells how a clipped recipe was extracted.
type Source string

const (
	SourceJSONLD Source = "json-ld"
	SourceLLM    Source = "llm"
)

// Result is a clipped recipe and how it was obtained.
type Result struct {
	Recipe recipe.Recipe
	Source Source
	// Meta is set when the model was used.
	Meta *llm.AgentMeta
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
}

// NewClipper creates a new Clipper. textGen may be nil, in which case only
// pages carrying schema.org recipe data can be clipped.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
	}
}

// RecipeID derives the stable id of a recipe clipped from pageURL.
func RecipeID(pageURL string) string {
	return IDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL)).String()
}

// Clip fetches the page and extracts its recipe, preferring embedded
// schema.org data over model extraction.
func (c *Clipper) Clip(ctx context.Context, pageURL string) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid recipe URL %q", pageURL)
	}
	pageURL = u.String()

	doc, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	if r, ok := FromJSONLD(doc); ok {
		r.ID = RecipeID(pageURL)
		return &Result{Recipe: r, Source: SourceJSONLD}, nil
	}

	if c.textGen == nil {
		return nil, fmt.Errorf("no structured recipe found on page")
	}

	r, meta, err := recipe.Extract(ctx, c.textGen, recipe.PageData{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  cleanText(doc),
	})
	if err != nil {
		return &Result{Source: SourceLLM, Meta: &meta}, fmt.Errorf("ai extraction failed: %w", err)
	}
	r.ID = RecipeID(pageURL)
	return &Result{Recipe: r, Source: SourceLLM, Meta: &meta}, nil
}

func (c *Clipper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; recipe-planner)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// cleanText strips page chrome and returns the visible body text.
func cleanText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, nav, header, footer, iframe, noscript, form, .ads, #ads").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// EstimateDifficulty grades a recipe by its total time in minutes.
func EstimateDifficulty(totalMinutes int) recipe.Difficulty {
	switch {
	case totalMinutes <= 30:
		return recipe.DifficultyEasy
	case totalMinutes <= 60:
		return recipe.DifficultyMedium
	default:
		return recipe.DifficultyHard
	}
}
