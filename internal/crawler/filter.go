package crawler

import (
	"bytes"
	"iter"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Extensions of linked resources that are never product pages
var ignoredExtensions = map[string]bool{
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
	".bmp": true, ".ico": true, ".tif": true, ".tiff": true,
	// audio / video
	".mp3": true, ".wav": true, ".ogg": true, ".mp4": true, ".mov": true, ".avi": true,
	".webm": true, ".m4a": true, ".wmv": true,
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true,
	".pptx": true, ".odt": true, ".csv": true,
	// archives and binaries
	".zip": true, ".rar": true, ".gz": true, ".tar": true, ".7z": true, ".exe": true,
	".dmg": true, ".apk": true, ".bin": true,
	// assets
	".css": true, ".js": true, ".woff": true, ".woff2": true, ".ttf": true,
}

// LinkFilter selects product-detail links from a listing page
type LinkFilter struct {
	pattern *regexp.Regexp
}

// NewLinkFilter creates a filter keeping links whose path matches pattern
func NewLinkFilter(pattern *regexp.Regexp) *LinkFilter {
	return &LinkFilter{pattern: pattern}
}

// Filter yields the candidate product links found in body, resolved
// against baseURL. Links are deduplicated within the page only.
func (f *LinkFilter) Filter(body []byte, baseURL string) iter.Seq[CandidateLink] {
	return func(yield func(CandidateLink) bool) {
		base, err := url.Parse(baseURL)
		if err != nil {
			logrus.Debugf("Listing base URL %q unparseable: %v", baseURL, err)
			return
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			logrus.Debugf("Listing %s not parseable as HTML: %v", baseURL, err)
			return
		}

		// <base href> overrides the document URL for relative links
		if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
			if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
				base = b
			}
		}

		seen := make(map[string]bool)
		doc.Find("a[href], area[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			link, ok := f.accept(base, href)
			if !ok || seen[link] {
				return true
			}
			seen[link] = true
			return yield(CandidateLink{URL: link})
		})
	}
}

// Links collects Filter's output into a slice
func (f *LinkFilter) Links(body []byte, baseURL string) []CandidateLink {
	var links []CandidateLink
	for link := range f.Filter(body, baseURL) {
		links = append(links, link)
	}
	return links
}

// accept resolves href and reports whether it is a product-detail link
func (f *LinkFilter) accept(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}

	// Only web pages
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	if ignoredExtensions[strings.ToLower(path.Ext(resolved.Path))] {
		return "", false
	}

	if !f.pattern.MatchString(resolved.Path) {
		return "", false
	}

	link := resolved.String()

	// Trailing slash marks an intermediate category page
	if strings.HasSuffix(link, "/") {
		return "", false
	}

	return link, true
}
