package domain

import "strings"

// ContextEntry is one key/value pair of prompt context.
// Context is kept as a slice rather than a map so insertion order is
// preserved and rendering stays deterministic.
type ContextEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Context is an ordered list of context entries
type Context []ContextEntry

// Add appends an entry, preserving insertion order
func (c Context) Add(key, value string) Context {
	return append(c, ContextEntry{Key: key, Value: value})
}

// Get returns the value for key and whether it was present
func (c Context) Get(key string) (string, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// PromptSpec is a validated, normalized translation request
type PromptSpec struct {
	NaturalText      string   `json:"natural_text"`
	TaskType         TaskType `json:"task_type"`
	IncludeReasoning bool     `json:"include_reasoning"`
	Context          Context  `json:"context,omitempty"`
}

// Section is one named block of a structured prompt
type Section struct {
	Tag  string `json:"tag"`
	Body string `json:"body"`
}

// StructuredPrompt is the rendered, tagged document handed to providers
type StructuredPrompt struct {
	TaskType TaskType  `json:"task_type"`
	Sections []Section `json:"sections"`
}

// Text serializes the prompt as a tagged document. Serialization is a pure
// function of the section list, so identical prompts yield identical bytes.
func (p *StructuredPrompt) Text() string {
	var b strings.Builder
	for i, s := range p.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("<")
		b.WriteString(s.Tag)
		b.WriteString(">\n")
		b.WriteString(s.Body)
		if !strings.HasSuffix(s.Body, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("</")
		b.WriteString(s.Tag)
		b.WriteString(">\n")
	}
	return b.String()
}
