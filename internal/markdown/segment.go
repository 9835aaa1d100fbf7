// Package markdown splits documents into heading-keyed sections and joins
// them back together.
package markdown

import (
	"regexp"
	"strings"
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	lineBreak      = regexp.MustCompile(`\r?\n`)
)

// Segment scans text line by line and returns its sections in order.
//
// A heading line (1-6 '#' followed by whitespace and a title) closes the open
// section and opens a new one keyed by marker + " " + title. Bodies are
// trimmed. Text before the first heading goes to Preamble. A repeated key
// keeps its first position and the later body.
func Segment(text string) *Sections {
	return Segmenter{}.Segment(text)
}

// Segmenter holds the heading rules for Segment.
type Segmenter struct {
	// FencedCode makes lines inside ``` or ~~~ blocks body text even when
	// they look like headings.
	FencedCode bool
}

// Segment works like the package-level Segment under s's rules.
func (s Segmenter) Segment(text string) *Sections {
	sections := NewSections()

	var (
		currentKey string
		open       bool
		buffer     []string
		preamble   []string
		fence      string
	)

	for _, line := range lineBreak.Split(text, -1) {
		if fence == "" {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				if open {
					sections.Set(currentKey, strings.TrimSpace(strings.Join(buffer, "\n")))
				}
				currentKey = HeadingKey(m[1], m[2])
				open = true
				buffer = buffer[:0]
				continue
			}
		}
		if s.FencedCode {
			fence = nextFence(fence, line)
		}

		if open {
			buffer = append(buffer, line)
		} else {
			preamble = append(preamble, line)
		}
	}

	if open {
		sections.Set(currentKey, strings.TrimSpace(strings.Join(buffer, "\n")))
	}
	sections.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))
	return sections
}

// HeadingKey builds the key for a heading marker and title.
func HeadingKey(marker, title string) string {
	return strings.TrimSpace(marker + " " + strings.TrimSpace(title))
}

// Level returns the heading level of key, or 0 if key is not a heading.
func Level(key string) int {
	m := headingPattern.FindStringSubmatch(key)
	if m == nil {
		return 0
	}
	return len(m[1])
}

// Title returns the heading text of key without its marker.
func Title(key string) string {
	m := headingPattern.FindStringSubmatch(key)
	if m == nil {
		return key
	}
	return strings.TrimSpace(m[2])
}

// nextFence tracks fenced code blocks. fence is the marker of the open block,
// or "" outside of one.
func nextFence(fence, line string) string {
	trimmed := strings.TrimSpace(line)
	if fence == "" {
		for _, marker := range []string{"```", "~~~"} {
			if strings.HasPrefix(trimmed, marker) {
				return fenceRun(trimmed, marker[0])
			}
		}
		return ""
	}
	if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, string(fence[0])) == "" {
		return ""
	}
	return fence
}

func fenceRun(s string, c byte) string {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return s[:n]
}

// StripFencedBlocks removes fenced code blocks whose info string is lang.
func StripFencedBlocks(text, lang string) string {
	var out []string
	fence := ""
	skipping := false
	for _, line := range lineBreak.Split(text, -1) {
		trimmed := strings.TrimSpace(line)
		if fence == "" {
			next := nextFence("", line)
			if next != "" {
				info := strings.TrimSpace(strings.TrimLeft(trimmed, string(next[0])))
				fence = next
				skipping = strings.EqualFold(info, lang)
				if !skipping {
					out = append(out, line)
				}
				continue
			}
			out = append(out, line)
			continue
		}
		fence = nextFence(fence, line)
		if !skipping {
			out = append(out, line)
		}
		if fence == "" {
			skipping = false
		}
	}
	return strings.Join(out, "\n")
}
