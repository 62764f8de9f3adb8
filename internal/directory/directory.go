// Package directory resolves the published group directory page into the
// set of groups and their schedule page locations.
package directory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DirectoryPath is the site-relative location of the group directory page.
const DirectoryPath = "hg.htm"

// Group schedule pages are linked as cg###.htm.
var groupLinkRe = regexp.MustCompile(`(?i)^cg\d+\.htm$`)

// Group is one entry of the directory: the group code and the relative URL
// of its schedule page.
type Group struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// Fetcher retrieves one site page by its relative path.
type Fetcher interface {
	Get(ctx context.Context, path string) (string, error)
}

// FetchGroups downloads the directory page and resolves its groups.
func FetchGroups(ctx context.Context, fetcher Fetcher) ([]Group, error) {
	html, err := fetcher.Get(ctx, DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("fetching group directory: %w", err)
	}
	return ParseGroups(html)
}

// ParseGroups extracts every group link from the directory page HTML. The
// result is deduplicated by the (code, url) pair and sorted by code. Links
// that do not point at a schedule page, or carry no text, are ignored.
func ParseGroups(html string) ([]Group, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing directory page: %w", err)
	}

	groups := make([]Group, 0)
	seen := make(map[Group]bool)

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if !groupLinkRe.MatchString(href) {
			return
		}
		code := strings.Join(strings.Fields(link.Text()), " ")
		if code == "" {
			return
		}
		g := Group{Code: code, URL: href}
		if seen[g] {
			return
		}
		seen[g] = true
		groups = append(groups, g)
	})

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Code != groups[j].Code {
			return groups[i].Code < groups[j].Code
		}
		return groups[i].URL < groups[j].URL
	})
	return groups, nil
}
