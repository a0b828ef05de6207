package models

import (
	"sort"
	"strings"
)

// SortedKeywords flattens a phrase count map into a frequency-ordered
// list. Single-word entries are dropped.
func SortedKeywords(counts map[string]int) []KeywordPhrase {
	list := make([]KeywordPhrase, 0, len(counts))
	for text, count := range counts {
		if len(strings.Fields(text)) < 2 {
			continue
		}
		list = append(list, KeywordPhrase{Text: text, Count: count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count == list[j].Count {
			return list[i].Text < list[j].Text
		}
		return list[i].Count > list[j].Count
	})
	return list
}
