package listing

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/pawconnect/internal/domain"
)

// Keyword ranking orders the loaded page by how well a free-text query
// describes each post. Scoring uses Jaccard similarity between the query
// token set and the post's token set: score = |Q ∩ P| / |Q ∪ P|.

// Ranked is a post with its similarity score.
type Ranked[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

// RankOption configures Rank.
type RankOption func(*rankConfig)

type rankConfig struct {
	stopwords map[string]struct{}
	limit     int
}

// DefaultStopwords are dropped from queries and posts unless replaced with
// WithStopwords.
var DefaultStopwords = []string{"a", "an", "and", "the", "of", "with", "in", "on", "is", "to", "for"}

func defaultRankConfig() rankConfig {
	c := rankConfig{}
	WithStopwords(DefaultStopwords)(&c)
	return c
}

// WithStopwords replaces the stop-word list. An empty list disables
// stop-word removal.
func WithStopwords(words []string) RankOption {
	return func(c *rankConfig) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		c.stopwords = nil
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithLimit caps the number of results; n <= 0 means no cap.
func WithLimit(n int) RankOption {
	return func(c *rankConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// Rank scores each item's text against query and returns the items that
// share at least one token with it, best first. Ties keep the shorter text
// first, then the page order. An empty query ranks nothing.
func Rank[T any](items []T, text func(T) string, query string, opts ...RankOption) []Ranked[T] {
	cfg := defaultRankConfig()
	for _, o := range opts {
		o(&cfg)
	}
	q := tokenize(query, cfg.stopwords)
	if len(q) == 0 {
		return nil
	}

	type scored struct {
		Ranked[T]
		runes int
	}
	buf := make([]scored, 0, len(items))
	for _, it := range items {
		t := text(it)
		p := tokenize(t, cfg.stopwords)
		over := overlap(q, p)
		if over == 0 {
			continue
		}
		union := float64(len(q) + len(p) - over)
		buf = append(buf, scored{
			Ranked: Ranked[T]{Item: it, Score: float64(over) / union},
			runes:  utf8.RuneCountInString(t),
		})
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].runes < buf[b].runes
	})

	if cfg.limit > 0 && len(buf) > cfg.limit {
		buf = buf[:cfg.limit]
	}
	out := make([]Ranked[T], len(buf))
	for i, s := range buf {
		out[i] = s.Ranked
	}
	return out
}

// AdoptionText is the searchable text of an adoption post.
func AdoptionText(p domain.AdoptionPost) string {
	return strings.Join([]string{p.Name, p.Breed, p.Color, p.Type, p.Gender, p.Description, p.Behaviour, p.Location}, " ")
}

// MissingText is the searchable text of a missing pet report.
func MissingText(p domain.MissingPost) string {
	return strings.Join([]string{p.Name, p.Breed, p.Color, p.Type, p.Gender, p.SpecificAttribute, p.AccessoriesLastWorn, p.Location}, " ")
}

// DonationText is the searchable text of a donation campaign.
func DonationText(p domain.DonationPost) string {
	return strings.Join([]string{p.Title, p.Type, p.Description}, " ")
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
