package news

import "strings"

var placeholderText = map[string]struct{}{
	"[removed]": {},
	"null":      {},
	"undefined": {},
	"n/a":       {},
}

// Valid reports whether an article carries every field callers render and no
// placeholder text in its title or description.
func Valid(item Item) bool {
	if strings.TrimSpace(item.URL) == "" || strings.TrimSpace(item.Image) == "" {
		return false
	}
	return !isPlaceholder(item.Title) && !isPlaceholder(item.Description)
}

// FilterValid returns the subset of items that pass Valid, preserving order.
func FilterValid(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if Valid(item) {
			out = append(out, item)
		}
	}
	return out
}

func isPlaceholder(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return true
	}
	_, ok := placeholderText[trimmed]
	return ok
}

// Pad returns exactly n items: items first, then fallback entries whose URL is
// not already present. If both sources together hold fewer than n items the
// result is shorter, but never empty while fallback is non-empty.
func Pad(items []Item, fallback []Item, n int) []Item {
	if len(items) >= n {
		out := make([]Item, n)
		copy(out, items[:n])
		return out
	}
	out := make([]Item, 0, n)
	out = append(out, items...)
	seen := make(map[string]struct{}, n)
	for _, item := range items {
		seen[item.URL] = struct{}{}
	}
	for _, item := range fallback {
		if len(out) >= n {
			break
		}
		if _, dup := seen[item.URL]; dup {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}
