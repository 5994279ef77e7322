package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	wildcard = "*"
	// minWildcardIndex keeps patterns from scanning the whole item table.
	minWildcardIndex = 3
)

// ItemPattern is an item id with a single wildcard standing for any run of characters.
type ItemPattern struct {
	Raw    string
	prefix string
	suffix string
}

// Match reports whether id is matched by the pattern.
func (p ItemPattern) Match(id string) bool {
	return len(id) >= len(p.prefix)+len(p.suffix) &&
		strings.HasPrefix(id, p.prefix) &&
		strings.HasSuffix(id, p.suffix)
}

// LikeExpr renders the pattern as a SQL LIKE expression using '\' as escape
// character, so '_' and '%' inside item ids are matched literally.
func (p ItemPattern) LikeExpr() string {
	return escapeLike(p.prefix) + "%" + escapeLike(p.suffix)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ItemFilter is a parsed item list.
type ItemFilter struct {
	IDs      []string
	Patterns []ItemPattern
}

// Empty reports whether the filter names no item at all.
func (f ItemFilter) Empty() bool {
	return len(f.IDs) == 0 && len(f.Patterns) == 0
}

// ParseItemList parses a comma separated item list. Entries may contain one
// wildcard, not within the first three characters.
func ParseItemList(list string) (ItemFilter, error) {
	var f ItemFilter
	seen := make(map[string]struct{})
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}

		switch strings.Count(token, wildcard) {
		case 0:
			f.IDs = append(f.IDs, token)
		case 1:
			i := strings.Index(token, wildcard)
			if i < minWildcardIndex {
				return ItemFilter{}, fmt.Errorf("%w: wildcard too early in %q", ErrInvalidItemFilter, token)
			}
			f.Patterns = append(f.Patterns, ItemPattern{Raw: token, prefix: token[:i], suffix: token[i+1:]})
		default:
			return ItemFilter{}, fmt.Errorf("%w: more than one wildcard in %q", ErrInvalidItemFilter, token)
		}
	}
	return f, nil
}

// ResolveItems merges exact ids with the ids each pattern matched. matches is
// keyed by ItemPattern.Raw; candidates are re-checked against the pattern.
// A pattern left without any match invalidates the whole filter.
func ResolveItems(f ItemFilter, matches map[string][]string) ([]string, error) {
	seen := make(map[string]struct{}, len(f.IDs))
	out := make([]string, 0, len(f.IDs))
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range f.IDs {
		add(id)
	}
	for _, p := range f.Patterns {
		found := 0
		for _, id := range matches[p.Raw] {
			if p.Match(id) {
				add(id)
				found++
			}
		}
		if found == 0 {
			return nil, fmt.Errorf("%w: %q matches no item", ErrInvalidItemFilter, p.Raw)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ParseQualityList parses a comma separated quality list, keeping values in [1,5].
func ParseQualityList(list string) []uint8 {
	var present [6]bool
	for _, token := range strings.Split(list, ",") {
		q, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || q < 1 || q > 5 {
			continue
		}
		present[q] = true
	}
	out := make([]uint8, 0, 5)
	for q := 1; q <= 5; q++ {
		if present[q] {
			out = append(out, uint8(q))
		}
	}
	return out
}
