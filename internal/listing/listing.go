// Package listing filters the currently loaded page of posts the way the
// browse screens do. Filters are pure; an empty value or "all" disables a
// criterion.
package listing

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/pawconnect/internal/domain"
)

// Any disables a criterion.
const Any = "all"

// fold builds a fresh Caser per call; Casers keep state and cannot be shared
// between goroutines.
func fold(s string) string { return cases.Fold().String(strings.TrimSpace(s)) }

func unset(v string) bool {
	v = fold(v)
	return v == "" || v == Any
}

// matches reports whether criterion is disabled or equals value, ignoring case.
func matches(criterion, value string) bool {
	return unset(criterion) || fold(criterion) == fold(value)
}

// contains reports whether query is empty or a case-folded substring of value.
func contains(value, query string) bool {
	q := fold(query)
	return q == "" || strings.Contains(fold(value), q)
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Availability values of AdoptionFilter.
const (
	Available   = "available"
	Unavailable = "unavailable"
)

// AdoptionFilter narrows adoption posts.
type AdoptionFilter struct {
	Name         string // substring of the pet name
	Type         string // dog, cat, ...
	Availability string // Available, Unavailable or Any
}

// Adoptions returns the posts matching f, in order.
func Adoptions(posts []domain.AdoptionPost, f AdoptionFilter) []domain.AdoptionPost {
	return filter(posts, func(p domain.AdoptionPost) bool {
		if !contains(p.Name, f.Name) || !matches(f.Type, p.Type) {
			return false
		}
		switch fold(f.Availability) {
		case Available:
			return p.Available()
		case Unavailable:
			return !p.Available()
		}
		return true
	})
}

// MissingFilter narrows missing-pet reports.
type MissingFilter struct {
	Name   string
	Type   string
	Gender string
}

// Missing returns the reports matching f, in order.
func Missing(posts []domain.MissingPost, f MissingFilter) []domain.MissingPost {
	return filter(posts, func(p domain.MissingPost) bool {
		return contains(p.Name, f.Name) && matches(f.Type, p.Type) && matches(f.Gender, p.Gender)
	})
}

// DonationFilter narrows donation campaigns.
type DonationFilter struct {
	Type    string // money, food, supplies, emergency
	Urgency string // urgent, normal
}

// Donations returns the campaigns matching f, in order.
func Donations(posts []domain.DonationPost, f DonationFilter) []domain.DonationPost {
	return filter(posts, func(p domain.DonationPost) bool {
		return matches(f.Type, p.Type) && matches(f.Urgency, p.Urgency)
	})
}
