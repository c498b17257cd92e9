package trash

import (
	"sort"
	"strings"

	"github.com/kestrelhq/kestrel/internal/models"
)

// metadataSearchFields is the fixed set of metadata keys scanned by Search.
var metadataSearchFields = []string{"repo", "prNumber", "ticketKey", "branch", "url"}

// SearchResult is one plain-search hit: the item, the field that matched,
// and a short context preview around the match.
type SearchResult struct {
	Item    *models.TrashedWorkstream
	Field   string
	Preview string
}

// Search does a linear substring scan across name, a fixed set of
// metadata fields, and message bodies. At most one match per item, no
// ranking.
func (b *Bin) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []SearchResult
	for _, item := range b.items {
		if r, ok := matchItem(item, q); ok {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Item.DeletedAt.After(results[j].Item.DeletedAt)
	})
	return results
}

func matchItem(item *models.TrashedWorkstream, q string) (SearchResult, bool) {
	if idx := strings.Index(strings.ToLower(item.Name), q); idx >= 0 {
		return SearchResult{Item: item, Field: "name", Preview: preview(item.Name, idx, len(q))}, true
	}
	for _, key := range metadataSearchFields {
		val := item.Metadata[key]
		if idx := strings.Index(strings.ToLower(val), q); idx >= 0 {
			return SearchResult{Item: item, Field: "metadata:" + key, Preview: preview(val, idx, len(q))}, true
		}
	}
	for i := range item.Messages {
		content := item.Messages[i].Content
		if idx := strings.Index(strings.ToLower(content), q); idx >= 0 {
			return SearchResult{Item: item, Field: "message", Preview: preview(content, idx, len(q))}, true
		}
	}
	return SearchResult{}, false
}

// preview extracts a short window of text around a match.
func preview(text string, idx, matchLen int) string {
	const margin = 30
	start := idx - margin
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + margin
	if end > len(text) {
		end = len(text)
	}
	p := text[start:end]
	if start > 0 {
		p = "..." + p
	}
	if end < len(text) {
		p += "..."
	}
	return strings.ReplaceAll(p, "\n", " ")
}

// ScoredResult is one smart-search hit.
type ScoredResult struct {
	Item  *models.TrashedWorkstream
	Score float64
}

// Scoring constants. The best single score across fields wins per item.
const (
	scoreNameExact     = 100
	scoreNameSubstr    = 80
	scoreMetaSubstr    = 70
	scoreTypeSubstr    = 60
	scoreMessageSubstr = 50
	scoreOverlapScale  = 60
	messageOverlapDamp = 0.6
	scoreFloor         = 20
)

// SmartSearch does scored retrieval over the trash without an inverted
// index. Query keywords are extracted by lower-casing, stripping
// punctuation, splitting on whitespace, and discarding short or stop-word
// tokens. Items scoring at or below the floor are dropped; the rest sort
// descending by score.
func (b *Bin) SmartSearch(query string) []ScoredResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	keywords := extractKeywords(q)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []ScoredResult
	for _, item := range b.items {
		score := scoreItem(item, q, keywords)
		if score <= scoreFloor {
			continue
		}
		results = append(results, ScoredResult{Item: item, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.DeletedAt.After(results[j].Item.DeletedAt)
	})
	return results
}

func scoreItem(item *models.TrashedWorkstream, q string, keywords []string) float64 {
	name := strings.ToLower(item.Name)

	best := 0.0
	if name == q {
		best = scoreNameExact
	} else if strings.Contains(name, q) {
		best = scoreNameSubstr
	}

	var metaParts []string
	for _, val := range item.Metadata {
		metaParts = append(metaParts, strings.ToLower(val))
	}
	meta := strings.Join(metaParts, " ")
	if best < scoreMetaSubstr && strings.Contains(meta, q) {
		best = scoreMetaSubstr
	}

	if best < scoreTypeSubstr && strings.Contains(string(item.Type), q) {
		best = scoreTypeSubstr
	}

	var msgParts []string
	for i := range item.Messages {
		msgParts = append(msgParts, strings.ToLower(item.Messages[i].Content))
	}
	msgs := strings.Join(msgParts, " ")
	if best < scoreMessageSubstr && strings.Contains(msgs, q) {
		best = scoreMessageSubstr
	}

	// Term-overlap fallback, applied independently per field. Message
	// content is down-weighted to keep verbose free text from dominating.
	if len(keywords) > 0 {
		if s := overlapScore(name, keywords); s > best {
			best = s
		}
		if s := overlapScore(meta, keywords); s > best {
			best = s
		}
		if s := overlapScore(msgs, keywords) * messageOverlapDamp; s > best {
			best = s
		}
	}
	return best
}

// overlapScore is (matched keywords / total keywords) scaled to the
// overlap band.
func overlapScore(text string, keywords []string) float64 {
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords)) * scoreOverlapScale
}

// extractKeywords tokenizes a query: lowercase input, punctuation mapped
// to spaces, whitespace split, short and stop-word tokens discarded.
func extractKeywords(q string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, q)

	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}

// stopWords are common tokens carrying no retrieval signal.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "this": true, "that": true, "with": true,
	"from": true, "they": true, "been": true, "were": true, "their": true,
	"what": true, "when": true, "where": true,
	"which": true, "would": true, "could": true,
	"should": true, "about": true, "into": true, "over": true,
	"then": true, "than": true, "them": true, "these": true,
	"those": true, "some": true, "such": true, "only": true,
	"just": true, "also": true, "very": true, "more": true,
	"most": true, "other": true, "your": true, "will": true,
	"there": true, "here": true, "each": true, "does": true,
	"doing": true, "done": true, "make": true, "made": true,
	"like": true, "want": true, "need": true, "please": true,
	"help": true, "find": true, "show": true, "how": true,
}
