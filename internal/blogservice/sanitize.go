package blogservice

import (
	"path/filepath"
	"regexp"
)

var (
	scriptTagPattern     = regexp.MustCompile(`(?i)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	htmlImagePattern     = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
)

func sanitizeMarkdown(markdown string) string {
	return scriptTagPattern.ReplaceAllString(markdown, "")
}

// extractImageRefs pulls embedded image references out of post content, both
// markdown and inline HTML forms. Only bare file names are returned: anything
// with a path or scheme points outside the blob store and is not ours to
// delete.
func extractImageRefs(content string) []string {
	var refs []string

	collect := func(matches [][]string) {
		for _, m := range matches {
			ref := m[1]
			if ref != "" && ref == filepath.Base(ref) {
				refs = append(refs, ref)
			}
		}
	}

	collect(markdownImagePattern.FindAllStringSubmatch(content, -1))
	collect(htmlImagePattern.FindAllStringSubmatch(content, -1))

	return refs
}
