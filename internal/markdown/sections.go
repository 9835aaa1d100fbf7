package markdown

import "strings"

// Sections is an ordered mapping of heading key to body.
// Keys keep the position of their first insertion.
type Sections struct {
	// Preamble is the text before the first heading. It is never a section.
	Preamble string

	keys   []string
	bodies map[string]string
}

// NewSections returns an empty mapping.
func NewSections() *Sections {
	return &Sections{bodies: make(map[string]string)}
}

// Set stores body under key, appending key when it is new.
func (s *Sections) Set(key, body string) {
	if _, ok := s.bodies[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.bodies[key] = body
}

// Get returns the body stored under key.
func (s *Sections) Get(key string) (string, bool) {
	body, ok := s.bodies[key]
	return body, ok
}

// Has reports whether key is present.
func (s *Sections) Has(key string) bool {
	_, ok := s.bodies[key]
	return ok
}

// Keys returns heading keys in order.
func (s *Sections) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of sections.
func (s *Sections) Len() int { return len(s.keys) }

// Clone returns an independent copy.
func (s *Sections) Clone() *Sections {
	c := &Sections{
		Preamble: s.Preamble,
		keys:     append([]string(nil), s.keys...),
		bodies:   make(map[string]string, len(s.bodies)),
	}
	for k, v := range s.bodies {
		c.bodies[k] = v
	}
	return c
}

// Render joins the sections back into a document: each heading line, a blank
// line and the body; sections separated by a blank line. The preamble is
// emitted first when includePreamble is set and it is not empty.
func (s *Sections) Render(includePreamble bool) string {
	var parts []string
	if includePreamble && strings.TrimSpace(s.Preamble) != "" {
		parts = append(parts, strings.TrimSpace(s.Preamble))
	}
	for _, key := range s.keys {
		body := s.bodies[key]
		if body == "" {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, key+"\n\n"+body)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}
