package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/voicedev/vox/internal/domain"
)

// reasoningScaffold is the fixed chain-of-thought block appended when a
// spec asks for reasoning.
const reasoningScaffold = `Think step by step:
1. Understand the user's intent
2. Identify required components and structure
3. Plan the implementation approach
4. Generate clean, maintainable code`

// Renderer converts PromptSpecs into structured prompts using the task
// template registry. Rendering is deterministic: identical inputs always
// produce byte-identical output.
type Renderer struct {
	loader     *Loader
	maxHistory int
}

// NewRenderer creates a renderer backed by the given loader. maxHistory
// bounds how many of the most recent conversation entries are included.
func NewRenderer(loader *Loader, maxHistory int) *Renderer {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Renderer{loader: loader, maxHistory: maxHistory}
}

// Templates lists metadata for every registered task template
func (r *Renderer) Templates() ([]*TemplateMeta, error) {
	return r.loader.ListTemplates()
}

// taskData is the variable set exposed to task templates
type taskData struct {
	Type   string
	Intent string
}

// Render produces the structured prompt for a spec. Section order is
// fixed: task declaration, context, prior conversation, reasoning
// scaffold, instruction. Unknown task types degrade to the generic
// template rather than failing.
func (r *Renderer) Render(spec domain.PromptSpec, history []domain.Entry) (domain.StructuredPrompt, error) {
	taskBody, err := r.taskBody(spec)
	if err != nil {
		return domain.StructuredPrompt{}, err
	}

	sp := domain.StructuredPrompt{TaskType: spec.TaskType}
	sp.Sections = append(sp.Sections, domain.Section{Tag: "task", Body: taskBody})

	if ctx := mergeContext(spec); len(ctx) > 0 {
		sp.Sections = append(sp.Sections, domain.Section{Tag: "context", Body: renderContext(ctx)})
	}

	if len(history) > 0 {
		sp.Sections = append(sp.Sections, domain.Section{Tag: "conversation", Body: r.renderHistory(history)})
	}

	if spec.IncludeReasoning {
		sp.Sections = append(sp.Sections, domain.Section{Tag: "reasoning", Body: reasoningScaffold})
	}

	sp.Sections = append(sp.Sections, domain.Section{Tag: "instruction", Body: Escape(spec.NaturalText)})

	return sp, nil
}

// taskBody executes the task template, falling back to the generic one
// when no template is registered for the spec's task type.
func (r *Renderer) taskBody(spec domain.PromptSpec) (string, error) {
	tmpl, err := r.loader.TaskTemplate(spec.TaskType)
	if err != nil {
		var notFound *TemplateNotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
		tmpl, err = r.loader.GenericTemplate()
		if err != nil {
			return "", err
		}
	}

	data := taskData{
		Type:   string(spec.TaskType),
		Intent: ExtractIntent(spec.NaturalText, spec.TaskType),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute task template: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// mergeContext combines entities extracted from the natural text with the
// caller-supplied context. Caller entries win on key collisions and keep
// their original order.
func mergeContext(spec domain.PromptSpec) domain.Context {
	merged := append(domain.Context(nil), spec.Context...)
	for _, e := range ExtractEntities(spec.NaturalText) {
		if _, ok := merged.Get(e.Key); !ok {
			merged = merged.Add(e.Key, e.Value)
		}
	}
	return merged
}

func renderContext(ctx domain.Context) string {
	var b strings.Builder
	for i, e := range ctx {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Escape(e.Key))
		b.WriteString(": ")
		b.WriteString(Escape(e.Value))
	}
	return b.String()
}

// renderHistory renders the most recent entries in chronological order,
// bounded to maxHistory.
func (r *Renderer) renderHistory(history []domain.Entry) string {
	if len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}
	var b strings.Builder
	for i, e := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Escape(e.Role))
		b.WriteString(": ")
		b.WriteString(Escape(e.Content))
	}
	return b.String()
}

// Escape neutralizes structural delimiters in free text so embedded
// markup cannot forge section boundaries.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
