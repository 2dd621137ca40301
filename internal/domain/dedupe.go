package domain

import (
	"regexp"
	"strings"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// TitleKey normalizes a title for duplicate detection: lower case, trimmed,
// internal whitespace collapsed to single spaces.
func TitleKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Dedupe drops books whose title key was already seen, keeping the first
// occurrence and the original order. Books without a title are always kept.
func Dedupe(books []Book) []Book {
	seen := make(map[string]struct{}, len(books))
	out := make([]Book, 0, len(books))

	for _, book := range books {
		key := TitleKey(book.Title)
		if key == "" {
			out = append(out, book)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, book)
	}

	return out
}

// SimilarTitle reports whether two titles are the same once punctuation is
// stripped, or whether one contains the other.
func SimilarTitle(a, b string) bool {
	na := TitleKey(nonWordRegex.ReplaceAllString(a, ""))
	nb := TitleKey(nonWordRegex.ReplaceAllString(b, ""))
	if na == "" || nb == "" {
		return na == nb
	}

	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// DedupeSimilar is the looser variant of Dedupe: a book is dropped when its
// title is similar to any book already kept.
func DedupeSimilar(books []Book) []Book {
	out := make([]Book, 0, len(books))

	for _, book := range books {
		duplicate := false
		if TitleKey(book.Title) != "" {
			for _, kept := range out {
				if TitleKey(kept.Title) != "" && SimilarTitle(kept.Title, book.Title) {
					duplicate = true
					break
				}
			}
		}
		if !duplicate {
			out = append(out, book)
		}
	}

	return out
}
