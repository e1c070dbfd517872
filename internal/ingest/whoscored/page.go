// Package whoscored loads WhoScored match-centre pages and exposes their text
// to the blob locator.
package whoscored

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/pitchside/internal/extract"
	"github.com/fortuna/pitchside/internal/match"
)

// Page is the rendered content of one match-centre load. It only lives for the
// duration of one analysis.
type Page struct {
	URL       string
	HTML      string
	Scripts   []string
	Responses []string

	Region string
	League string
	Season string
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// NewPage parses rendered HTML plus any captured response bodies.
func NewPage(url, html string, responses []string) (*Page, error) {
	doc, err := ParseHTML(html)
	if err != nil {
		return nil, err
	}

	p := &Page{
		URL:       url,
		HTML:      html,
		Scripts:   inlineScripts(doc),
		Responses: responses,
	}
	p.Region, p.League, p.Season = breadcrumbs(doc)
	return p, nil
}

// Context returns the caller-supplied strings attached to every event row.
func (p *Page) Context() match.Context {
	return match.Context{Region: p.Region, League: p.League, Season: p.Season}
}

// Sources lists the locator stages in fallback order: inline scripts, captured
// network bodies, then the full rendered page.
func (p *Page) Sources() []extract.Source {
	return []extract.Source{
		extract.Texts(extract.StageInlineScripts, p.Scripts...),
		extract.Texts(extract.StageNetwork, p.Responses...),
		extract.Texts(extract.StagePageText, p.HTML),
	}
}

func inlineScripts(doc *goquery.Document) []string {
	var scripts []string
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if text := s.Text(); strings.TrimSpace(text) != "" {
			scripts = append(scripts, text)
		}
	})
	return scripts
}

// breadcrumbs reads region from the first span and "League - Season" from the
// first link of the breadcrumb bar. Missing parts stay empty.
func breadcrumbs(doc *goquery.Document) (region, league, season string) {
	nav := doc.Find("#breadcrumb-nav")
	if nav.Length() == 0 {
		return "", "", ""
	}

	region = strings.TrimSpace(nav.Find("span").First().Text())

	crumb := strings.TrimSpace(nav.Find("a").First().Text())
	if crumb == "" {
		return region, "", ""
	}
	if i := strings.LastIndex(crumb, " - "); i >= 0 {
		return region, strings.TrimSpace(crumb[:i]), strings.TrimSpace(crumb[i+3:])
	}
	return region, crumb, ""
}
