package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

const previewRunes = 300

// FormatText renders records as a numbered plain-text listing with a content
// preview per record.
func FormatText(records []candidate.Record) string {
	if len(records) == 0 {
		return "No results found.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d results\n", len(records))
	for i, r := range records {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, orNA(r.Slug))
		fmt.Fprintf(&sb, "Score: %.1f\n", r.Score)
		if r.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", r.Title)
		}
		if r.URL != "" {
			fmt.Fprintf(&sb, "URL: %s\n", r.URL)
		}
		if r.Similarity != nil {
			fmt.Fprintf(&sb, "Similarity: %.3f\n", *r.Similarity)
		}
		if r.Content != "" {
			fmt.Fprintf(&sb, "\n%s\n", preview(r.Content))
		}
	}
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}
