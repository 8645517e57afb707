package util

import "strings"

// RemoveDuplicateStrings keeps the first occurrence of every non-empty string
// not present in ignoreList, preserving order
func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

// TrimString cuts s down to at most length runes, marking the cut with an ellipsis
func TrimString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 1 {
		return string(runes[:length])
	}

	return string(runes[:length-1]) + "…"
}

// NormaliseIdentifier lowercases s and folds hyphens and spaces into underscores
func NormaliseIdentifier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
