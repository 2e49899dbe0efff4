package composer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/folio-hq/folio/internal/portfolio"
)

const notAvailable = "N/A"

// Truncate returns text unchanged when it has at most n characters,
// otherwise its first n characters followed by "...".
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// JoinNonEmpty joins the non-empty parts with sep.
func JoinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// LinkMarker renders a clickable reference in the "#label|url#" form.
func LinkMarker(label, url string) string {
	return "#" + label + "|" + url + "#"
}

// SortSkills returns a copy of skills ordered by descending confidence.
// Equal confidences keep their input order.
func SortSkills(skills []portfolio.Skill) []portfolio.Skill {
	sorted := make([]portfolio.Skill, len(skills))
	copy(sorted, skills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// PrimaryContact returns the first social link whose name mentions LinkedIn,
// email or a portfolio site, compared case-insensitively.
func PrimaryContact(links []portfolio.SocialLink) (portfolio.SocialLink, bool) {
	for _, l := range links {
		name := strings.ToLower(l.Name)
		if strings.Contains(name, "linkedin") || strings.Contains(name, "email") || strings.Contains(name, "portfolio") {
			return l, true
		}
	}
	return portfolio.SocialLink{}, false
}

func formatSkill(s portfolio.Skill) string {
	return s.Name + " (" + strconv.FormatFloat(s.Confidence, 'f', -1, 64) + "%)"
}

func formatSkills(skills []portfolio.Skill, topOnly bool) string {
	var parts []string
	for _, s := range skills {
		if topOnly && !s.Top {
			continue
		}
		parts = append(parts, formatSkill(s))
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	return or(s, notAvailable)
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func dateRange(start, end string) string {
	return orNA(start) + " - " + orNA(end)
}

func linkOrNA(label, url string) string {
	if url == "" {
		return notAvailable
	}
	return LinkMarker(label, url)
}

func truncateOrNA(text string, n int) string {
	if text == "" {
		return notAvailable
	}
	return Truncate(text, n)
}
