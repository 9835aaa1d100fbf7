package pipeline

import (
	"strings"

	"smartdocs/internal/markdown"
)

var placeholderTokens = []string{"tbd", "todo:", "placeholder", "lorem ipsum", "insert here"}

// assessDocument returns quality issues found in a generated document.
func assessDocument(doc string, requested []string) []string {
	text := strings.TrimSpace(doc)
	if text == "" {
		return []string{"empty_document"}
	}

	var issues []string
	sections := markdown.Segment(text)
	if sections.Len() == 0 {
		issues = append(issues, "no_headings")
	}

	have := make(map[string]bool, sections.Len())
	for _, key := range sections.Keys() {
		have[strings.ToLower(markdown.Title(key))] = true
		if body, _ := sections.Get(key); body == "" && markdown.Level(key) > 1 {
			issues = append(issues, "empty_section: "+key)
		}
	}
	for _, want := range requested {
		if !have[strings.ToLower(strings.TrimSpace(want))] {
			issues = append(issues, "missing_section: "+want)
		}
	}

	lower := strings.ToLower(markdown.StripFencedBlocks(text, "json"))
	for _, token := range placeholderTokens {
		if strings.Contains(lower, token) {
			issues = append(issues, "placeholder_text")
			break
		}
	}

	total, bullets := 0, 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		total++
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			bullets++
		}
	}
	if total > 4 && float64(bullets)/float64(total) > 0.6 {
		issues = append(issues, "list_heavy")
	}
	return issues
}

// sectionTitles returns the H2 titles of doc in order.
func sectionTitles(doc string) []string {
	var titles []string
	for _, key := range markdown.Segment(doc).Keys() {
		if markdown.Level(key) == 2 {
			titles = append(titles, markdown.Title(key))
		}
	}
	return titles
}
