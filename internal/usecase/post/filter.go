package post

import (
	"fmt"
	"strings"
	"unicode"

	"pulsepost/internal/utils/text"
)

// Skip reasons reported by the filter, used as metric labels.
const (
	ReasonTooShort  = "too_short"
	ReasonTooLong   = "too_long"
	ReasonBanned    = "banned_term"
	ReasonSpammy    = "spammy"
	ReasonDuplicate = "duplicate"
)

// FilteredError reports why a post was rejected before publishing.
type FilteredError struct {
	Reason string
}

func (e *FilteredError) Error() string {
	return fmt.Sprintf("post rejected: %s", e.Reason)
}

// FilterConfig configures the content filter.
type FilterConfig struct {
	// MinLength rejects posts shorter than this many runes.
	MinLength int

	// MaxLength rejects posts longer than this many runes.
	MaxLength int

	// BannedTerms rejects posts containing any of these, case-insensitive.
	BannedTerms []string

	// HistorySize is how many recent posts are kept for duplicate checks.
	HistorySize int
}

// ContentFilter vets generated posts before they reach the publisher. It
// enforces length bounds, a banned-term list, a spam heuristic and
// suppression of near-duplicate recent posts.
//
// The filter is not safe for concurrent use; the pipeline runs posts through
// it one at a time.
type ContentFilter struct {
	config FilterConfig
	recent []string
}

// NewContentFilter creates a filter with the given configuration.
func NewContentFilter(config FilterConfig) *ContentFilter {
	if config.MinLength <= 0 {
		config.MinLength = 20
	}
	if config.MaxLength <= 0 {
		config.MaxLength = 300
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 50
	}
	return &ContentFilter{config: config}
}

// Check returns a FilteredError when the post must not be published.
func (f *ContentFilter) Check(post string) error {
	length := text.CountRunes(post)
	if length < f.config.MinLength {
		return &FilteredError{Reason: ReasonTooShort}
	}
	if length > f.config.MaxLength {
		return &FilteredError{Reason: ReasonTooLong}
	}

	lower := strings.ToLower(post)
	for _, term := range f.config.BannedTerms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return &FilteredError{Reason: ReasonBanned}
		}
	}

	if isSpammy(post) {
		return &FilteredError{Reason: ReasonSpammy}
	}

	normalized := normalize(post)
	for _, prev := range f.recent {
		if prev == normalized {
			return &FilteredError{Reason: ReasonDuplicate}
		}
	}
	return nil
}

// MarkPublished records a post so later near-duplicates are suppressed.
func (f *ContentFilter) MarkPublished(post string) {
	f.recent = append(f.recent, normalize(post))
	if len(f.recent) > f.config.HistorySize {
		f.recent = f.recent[len(f.recent)-f.config.HistorySize:]
	}
}

// isSpammy applies cheap lexical heuristics: shouting, stacked punctuation
// and hashtag piles.
func isSpammy(post string) bool {
	var letters, upper int
	for _, r := range post {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 20 && float64(upper)/float64(letters) > 0.6 {
		return true
	}

	if strings.Contains(post, "!!!") || strings.Contains(post, "???") {
		return true
	}

	if strings.Count(post, "#") > 2 {
		return true
	}
	return false
}

// normalize reduces a post to a comparison key: lowercased with whitespace
// and punctuation noise collapsed.
func normalize(post string) string {
	lower := strings.ToLower(post)
	var b strings.Builder
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
