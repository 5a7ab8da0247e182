package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kingrea/curioquest/internal/story"
)

// maxFacts caps collection across all lookups for one topic.
const maxFacts = 5

// Fact is one collected claim with its supporting quote and citation.
type Fact struct {
	Claim      string `json:"claim"`
	Quote      string `json:"quote"`
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	URL        string `json:"url"`
}

// Research is the collector output handed to the outline builder.
type Research struct {
	Facts   []Fact         `json:"facts"`
	Sources []story.Source `json:"sources"`
}

// Collector gathers candidate facts from public reference services.
// Every lookup is optional: network failures and missing pages are
// skipped silently, and a run that produces nothing at all falls back to
// a deterministic stub so downstream stages always see a non-empty set.
type Collector struct {
	httpClient *http.Client
	wikiBase   string
	nasaBase   string
}

// CollectorOption customizes the collector (endpoints and transport are
// injectable for tests).
type CollectorOption func(*Collector)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) CollectorOption {
	return func(c *Collector) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithWikipediaBase points lookups at an alternate Wikipedia endpoint.
func WithWikipediaBase(base string) CollectorOption {
	return func(c *Collector) {
		if base != "" {
			c.wikiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithNASABase points the optional image lookup at an alternate endpoint.
func WithNASABase(base string) CollectorOption {
	return func(c *Collector) {
		if base != "" {
			c.nasaBase = strings.TrimRight(base, "/")
		}
	}
}

// NewCollector builds a collector with production endpoints.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		wikiBase:   "https://en.wikipedia.org",
		nasaBase:   "https://images-api.nasa.gov",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect queries one summary per topic and per sub-angle, clipping each
// extract into short quoted sentences, then tops up from the NASA image
// library when still under the cap. Source ids are assigned s1, s2, ...
// in discovery order. Collect never fails: with zero facts gathered it
// substitutes a three-fact stub citing a single placeholder source.
func (c *Collector) Collect(ctx context.Context, topic string, subAngles []string) Research {
	var res Research
	srcCounter := 1

	addSummary := func(title string) {
		if len(res.Facts) >= maxFacts {
			return
		}
		summary := c.fetchSummary(ctx, title)
		if summary == nil {
			return
		}
		id := fmt.Sprintf("s%d", srcCounter)
		srcCounter++
		res.Sources = append(res.Sources, story.Source{
			ID:   id,
			Name: "Wikipedia: " + summary.Title,
			URL:  summary.URL,
		})
		for _, sentence := range takeSentences(summary.Extract) {
			if len(res.Facts) >= maxFacts {
				break
			}
			quote := trimWords(sentence, 40)
			if quote == "" {
				continue
			}
			res.Facts = append(res.Facts, Fact{
				Claim:      quote,
				Quote:      quote,
				SourceID:   id,
				SourceName: "Wikipedia",
				URL:        summary.URL,
			})
		}
	}

	addSummary(topic)
	for _, angle := range subAngles {
		addSummary(topic + " " + angle)
	}

	if len(res.Facts) < maxFacts {
		if fact, source := c.fetchNASA(ctx, topic, srcCounter); fact != nil {
			srcCounter++
			res.Sources = append(res.Sources, *source)
			res.Facts = append(res.Facts, *fact)
		}
	}

	if len(res.Facts) == 0 {
		id := fmt.Sprintf("s%d", srcCounter)
		res.Sources = append(res.Sources, story.Source{ID: id, Name: "StubSource", URL: "https://example.com"})
		for i := 1; i <= 3; i++ {
			text := fmt.Sprintf("%s fact %d", topic, i)
			res.Facts = append(res.Facts, Fact{
				Claim:      text,
				Quote:      text,
				SourceID:   id,
				SourceName: "Stub",
				URL:        "https://example.com",
			})
		}
	}
	return res
}

type wikiSummary struct {
	Title   string
	Extract string
	URL     string
}

// fetchSummary resolves a page summary, chasing the title search when
// the direct lookup 404s. Any failure returns nil and is not reported.
func (c *Collector) fetchSummary(ctx context.Context, title string) *wikiSummary {
	summary, status := c.getSummary(ctx, title)
	if status == http.StatusNotFound {
		resolved := c.searchTitle(ctx, title)
		if resolved != "" {
			summary, _ = c.getSummary(ctx, resolved)
		}
	}
	return summary
}

func (c *Collector) getSummary(ctx context.Context, title string) (*wikiSummary, int) {
	endpoint := c.wikiBase + "/api/rest_v1/page/summary/" + url.PathEscape(title)
	var payload struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
			Mobile struct {
				Page string `json:"page"`
			} `json:"mobile"`
		} `json:"content_urls"`
	}
	status, err := c.getJSON(ctx, endpoint, &payload)
	if err != nil || status != http.StatusOK {
		return nil, status
	}
	pageURL := payload.ContentURLs.Desktop.Page
	if pageURL == "" {
		pageURL = payload.ContentURLs.Mobile.Page
	}
	if payload.Extract == "" {
		return nil, status
	}
	return &wikiSummary{Title: payload.Title, Extract: payload.Extract, URL: pageURL}, status
}

func (c *Collector) searchTitle(ctx context.Context, query string) string {
	endpoint := c.wikiBase + "/w/rest.php/v1/search/title?limit=1&q=" + url.QueryEscape(query)
	var payload struct {
		Pages []struct {
			Title string `json:"title"`
		} `json:"pages"`
	}
	status, err := c.getJSON(ctx, endpoint, &payload)
	if err != nil || status != http.StatusOK || len(payload.Pages) == 0 {
		return ""
	}
	return payload.Pages[0].Title
}

func (c *Collector) fetchNASA(ctx context.Context, topic string, srcCounter int) (*Fact, *story.Source) {
	endpoint := c.nasaBase + "/search?media_type=image&q=" + url.QueryEscape(topic)
	var payload struct {
		Collection struct {
			Items []struct {
				Data []struct {
					NASAID      string `json:"nasa_id"`
					Title       string `json:"title"`
					Description string `json:"description"`
				} `json:"data"`
			} `json:"items"`
		} `json:"collection"`
	}
	status, err := c.getJSON(ctx, endpoint, &payload)
	if err != nil || status != http.StatusOK {
		return nil, nil
	}
	items := payload.Collection.Items
	if len(items) == 0 || len(items[0].Data) == 0 {
		return nil, nil
	}
	data := items[0].Data[0]
	desc := trimWords(firstNonEmpty(data.Description, data.Title), 40)
	if desc == "" {
		return nil, nil
	}
	id := fmt.Sprintf("s%d", srcCounter)
	sourceURL := "https://images.nasa.gov/details-" + data.NASAID
	fact := &Fact{
		Claim:      firstNonEmpty(data.Title, desc),
		Quote:      desc,
		SourceID:   id,
		SourceName: "NASA",
		URL:        sourceURL,
	}
	return fact, &story.Source{ID: id, Name: "NASA Image", URL: sourceURL}
}

func (c *Collector) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)

func takeSentences(text string) []string {
	return sentenceRe.FindAllString(text, -1)
}

func trimWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
