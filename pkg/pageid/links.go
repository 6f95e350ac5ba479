package pageid

import (
	"regexp"
	"strings"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

	assetExtensions = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp|svg|avif|heic|bmp|tiff?|mp4|webm|mov|avi|mkv|m4v|pdf|docx?|xlsx?|pptx?|txt|csv|rtf|mp3|wav|flac|ogg|m4a|aac)$`)
)

// ExtractLinks returns the internal hrefs referenced by markdown link syntax
// in body, deduplicated in first-seen order. External URLs, mail and phone
// links, fragment-only anchors, tag pages and asset files are excluded.
func ExtractLinks(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range markdownLink.FindAllStringSubmatch(body, -1) {
		href := cleanHref(m[2])
		if href == "" || seen[href] || skipHref(href) {
			continue
		}
		seen[href] = true
		out = append(out, href)
	}
	return out
}

// PageLinks extracts and normalizes the links of a page in collection. Two
// hrefs resolving to the same id produce a single entry.
func (n *Normalizer) PageLinks(body, collection string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, href := range ExtractLinks(body) {
		id, ok := n.Normalize(href, collection)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func cleanHref(raw string) string {
	href := strings.TrimSpace(raw)
	if strings.HasPrefix(href, "<") {
		if end := strings.Index(href, ">"); end > 0 {
			return strings.TrimSpace(href[1:end])
		}
	}
	// [text](url "title")
	if i := strings.IndexAny(href, " \t"); i > 0 {
		href = href[:i]
	}
	return href
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "//"):
		return true
	case strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "tel:"):
		return true
	case strings.HasPrefix(href, "#"):
		return true
	case strings.HasPrefix(href, "/tags/"), strings.Contains(href, "/tags/"):
		return true
	}
	p := href
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		p = p[:i]
	}
	return assetExtensions.MatchString(p)
}
