// Package sofascore reads SofaScore's public match API through a browser tab
// and reduces it to a compact post-match summary.
package sofascore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/fortuna/pitchside/internal/browser"
)

const (
	BaseURL = "https://www.sofascore.com/api/v1"
)

// Client handles SofaScore API requests
// Note: goes through Chrome because the API rejects non-browser clients
type Client struct {
	baseURL string
	browser *browser.Browser
	logger  *log.Logger
}

// New creates a client with a custom base URL
func New(baseURL string, b *browser.Browser, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), browser: b, logger: logger}
}

// NewClient creates a client against the public API
func NewClient(b *browser.Browser, logger *log.Logger) *Client {
	return New(BaseURL, b, logger)
}

// FetchGraph fetches the momentum graph of a match
func (c *Client) FetchGraph(ctx context.Context, matchID int64) (*GraphResponse, error) {
	var resp GraphResponse
	if err := c.fetch(ctx, fmt.Sprintf("/event/%d/graph", matchID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchIncidents fetches goals, cards and period markers of a match
func (c *Client) FetchIncidents(ctx context.Context, matchID int64) (*IncidentsResponse, error) {
	var resp IncidentsResponse
	if err := c.fetch(ctx, fmt.Sprintf("/event/%d/incidents", matchID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchStatistics fetches team statistics of a match
func (c *Client) FetchStatistics(ctx context.Context, matchID int64) (*StatisticsResponse, error) {
	var resp StatisticsResponse
	if err := c.fetch(ctx, fmt.Sprintf("/event/%d/statistics", matchID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchLineups fetches both lineups with player ratings
func (c *Client) FetchLineups(ctx context.Context, matchID int64) (*LineupsResponse, error) {
	var resp LineupsResponse
	if err := c.fetch(ctx, fmt.Sprintf("/event/%d/lineups", matchID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchScheduledEvents fetches every football match scheduled on date
func (c *Client) FetchScheduledEvents(ctx context.Context, date time.Time) (*ScheduledEventsResponse, error) {
	var resp ScheduledEventsResponse
	if err := c.fetch(ctx, "/sport/football/scheduled-events/"+date.Format("2006-01-02"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchSummary fetches and reduces all per-match endpoints. A missing graph
// or statistics payload leaves that part empty; incidents and lineups are
// required.
func (c *Client) FetchSummary(ctx context.Context, matchID int64) (*Summary, error) {
	s := &Summary{MatchID: matchID}

	incidents, err := c.FetchIncidents(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("incidents: %w", err)
	}
	s.Score = FinalScore(incidents.Incidents)

	lineups, err := c.FetchLineups(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("lineups: %w", err)
	}
	s.Home.Players = LineupPlayers(lineups.Home)
	s.Away.Players = LineupPlayers(lineups.Away)
	s.Home.TeamID, _ = MostCommonTeamID(lineups.Home)
	s.Away.TeamID, _ = MostCommonTeamID(lineups.Away)

	if graph, err := c.FetchGraph(ctx, matchID); err != nil {
		c.logger.Printf("⚠️  match %d: no momentum graph: %v", matchID, err)
	} else {
		s.Momentum = Momentum(graph.GraphPoints)
	}

	if stats, err := c.FetchStatistics(ctx, matchID); err != nil {
		c.logger.Printf("⚠️  match %d: no statistics: %v", matchID, err)
	} else {
		s.Metrics = ExtractMetrics(*stats, DefaultMetrics)
	}

	return s, nil
}

// fetch loads the endpoint in a fresh tab and decodes the JSON the browser
// renders inside <pre>.
func (c *Client) fetch(ctx context.Context, path string, v interface{}) error {
	url := c.baseURL + path

	sessCtx, cancel, err := c.browser.Session(ctx)
	if err != nil {
		return &browser.FetchError{URL: url, Err: err}
	}
	defer cancel()

	attempts, err := c.browser.Navigate(sessCtx, url, "body")
	if err != nil {
		return err
	}

	var html string
	if err := chromedp.Run(sessCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return &browser.FetchError{URL: url, Attempts: attempts, Err: fmt.Errorf("read DOM: %w", err)}
	}

	if err := DecodePre(html, v); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	c.logger.Printf("✓ Fetched %s", url)
	return nil
}

// DecodePre unmarshals the JSON body a browser shows for an API response.
// Pages without <pre> are tried as raw body text.
func DecodePre(html string, v interface{}) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	text := strings.TrimSpace(doc.Find("pre").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Find("body").Text())
	}
	if text == "" {
		return fmt.Errorf("empty response body")
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decoding response: %w (body: %s)", err, text[:min(len(text), 200)])
	}
	return nil
}
