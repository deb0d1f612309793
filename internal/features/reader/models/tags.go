package models

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// NormalizeTag trims and lower-cases a tag
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags canonicalises a tag list into a sorted set without blanks
func NormalizeTags(tags []string) []string {
	normalized := lo.Uniq(lo.Compact(lo.Map(tags, func(tag string, _ int) string {
		return NormalizeTag(tag)
	})))
	sort.Strings(normalized)
	return normalized
}
