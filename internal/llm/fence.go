package llm

import (
	"encoding/json"
	"strings"
)

// ExtractFenced returns the body of the first fenced block whose info string
// is one of langs. Fences opened inside the block with a language tag are
// treated as nested, so a markdown block may itself contain code samples.
func ExtractFenced(text string, langs ...string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		marker, info, ok := openFence(lines[i])
		if !ok || !matchLang(info, langs) {
			continue
		}
		var body []string
		depth := 0
		for j := i + 1; j < len(lines); j++ {
			line := lines[j]
			if m, inner, ok := openFence(line); ok && strings.HasPrefix(m, marker[:1]) {
				switch {
				case inner != "":
					depth++
				case depth > 0:
					depth--
				case len(m) >= len(marker):
					return strings.TrimSpace(strings.Join(body, "\n")), true
				}
			}
			body = append(body, line)
		}
		// Unterminated: take the rest.
		return strings.TrimSpace(strings.Join(body, "\n")), true
	}
	return "", false
}

func openFence(line string) (marker, info string, ok bool) {
	t := strings.TrimSpace(line)
	for _, c := range []byte{'`', '~'} {
		n := 0
		for n < len(t) && t[n] == c {
			n++
		}
		if n >= 3 {
			return t[:n], strings.ToLower(strings.TrimSpace(t[n:])), true
		}
	}
	return "", "", false
}

func matchLang(info string, langs []string) bool {
	if f := strings.Fields(info); len(f) > 0 {
		info = f[0]
	}
	for _, l := range langs {
		if info == l {
			return true
		}
	}
	return false
}

// ExtractMarkdown returns the markdown document in a model reply: the first
// ```markdown (or ```md) block, else the reply with any wrapping fence removed.
func ExtractMarkdown(reply string) string {
	if body, ok := ExtractFenced(reply, "markdown", "md"); ok {
		return body
	}
	return cleanMarkdownOutput(reply)
}

// ExtractSectionTitles decodes the ```json array of H2 titles, if present.
func ExtractSectionTitles(reply string) []string {
	body, ok := ExtractFenced(reply, "json")
	if !ok {
		return nil
	}
	var titles []string
	if err := json.Unmarshal([]byte(body), &titles); err != nil {
		return nil
	}
	return titles
}

func cleanMarkdownOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl != -1 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
