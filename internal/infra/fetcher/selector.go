package fetcher

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobradar/internal/usecase/collect"
)

const (
	// minSubstantialLength is the minimum extracted length considered a
	// real posting body rather than navigation leftovers.
	minSubstantialLength = 200

	// maxContentLength caps extracted text before it reaches the
	// analyzer. Long postings past this point are boilerplate.
	maxContentLength = 8000
)

// contentSelectors are tried in order against the posting page. The
// job-board specific classes come first after the semantic elements
// because boards that use them put the whole posting inside.
var contentSelectors = []string{
	"main",
	`[role="main"]`,
	".job-description",
	".job-details",
	".position-summary",
	".content",
	"#content",
	".post-content",
	"article",
	".job-posting",
	".job-info",
}

// extractBySelectors pulls posting text out of raw HTML using a list of
// common content selectors. Script, style, and chrome elements are
// removed first so their text does not leak into the result. Falls back
// to the whole body when no selector matches anything substantial.
func extractBySelectors(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: HTML parse failed: %v", collect.ErrExtractionFailed, err)
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		text := normalizeWhitespace(sel.First().Text())
		if isSubstantial(text) {
			return text, nil
		}
	}

	// 最後の手段としてbody全体
	body := normalizeWhitespace(doc.Find("body").Text())
	if body == "" {
		return "", fmt.Errorf("%w: empty document body", collect.ErrExtractionFailed)
	}
	return body, nil
}

// isSubstantial reports whether extracted text is long enough to be a
// posting body.
func isSubstantial(text string) bool {
	return len(strings.TrimSpace(text)) > minSubstantialLength
}

// capContent trims the text and truncates it to maxContentLength.
func capContent(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxContentLength {
		return text[:maxContentLength]
	}
	return text
}

// normalizeWhitespace collapses runs of whitespace into single spaces,
// keeping blank-line separation between blocks.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
