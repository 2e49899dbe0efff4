// Package markup handles the inline markers chat replies are written in:
// "*text*" for emphasis and "#label|url#" for links.
package markup

import (
	"regexp"
	"sort"
)

// Kind identifies what a Part renders as.
type Kind int

const (
	Text Kind = iota
	Bold
	Link
)

func (k Kind) String() string {
	switch k {
	case Bold:
		return "bold"
	case Link:
		return "link"
	default:
		return "text"
	}
}

// Part is one rendered segment of a message.
type Part struct {
	Kind Kind   `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

var (
	linkRe = regexp.MustCompile(`#([^|#]+)\|([^#]+)#`)
	boldRe = regexp.MustCompile(`\*([^*]+)\*`)
)

type marker struct {
	start, end int
	part       Part
}

func (m marker) overlaps(o marker) bool {
	return m.start < o.end && o.start < m.end
}

// Parse splits text into plain, bold and link parts in order. When a link and
// a bold marker overlap, the link wins. Text without markers yields a single
// plain part.
func Parse(text string) []Part {
	var found []marker
	for _, loc := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, marker{
			start: loc[0],
			end:   loc[1],
			part:  Part{Kind: Link, Text: text[loc[2]:loc[3]], URL: text[loc[4]:loc[5]]},
		})
	}
	for _, loc := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, marker{
			start: loc[0],
			end:   loc[1],
			part:  Part{Kind: Bold, Text: text[loc[2]:loc[3]]},
		})
	}
	// Links were collected first, so on equal starts they stay ahead.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].start < found[j].start
	})

	var kept []marker
	for _, m := range found {
		if m.part.Kind != Link {
			if !overlapsAny(m, kept) {
				kept = append(kept, m)
			}
			continue
		}
		// Link matches never overlap each other, so only bold markers are evicted.
		filtered := kept[:0]
		for _, k := range kept {
			if !m.overlaps(k) {
				filtered = append(filtered, k)
			}
		}
		kept = append(filtered, m)
	}

	var parts []Part
	last := 0
	for _, m := range kept {
		if m.start > last {
			parts = append(parts, Part{Kind: Text, Text: text[last:m.start]})
		}
		parts = append(parts, m.part)
		last = m.end
	}
	if last < len(text) {
		parts = append(parts, Part{Kind: Text, Text: text[last:]})
	}
	if len(parts) == 0 {
		return []Part{{Kind: Text, Text: text}}
	}
	return parts
}

func overlapsAny(m marker, kept []marker) bool {
	for _, k := range kept {
		if m.overlaps(k) {
			return true
		}
	}
	return false
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
