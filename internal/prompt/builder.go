package prompt

import (
	"sort"
	"strings"

	"github.com/voicedev/vox/internal/domain"
)

// Input is a raw translation request before validation
type Input struct {
	NaturalText      string
	TaskType         string // empty defaults to code_generation
	IncludeReasoning *bool  // nil defaults to true
	Context          domain.Context
}

// Build validates and normalizes a translation request into a PromptSpec.
// Pure function of its input; no side effects.
func Build(in Input) (domain.PromptSpec, error) {
	text := strings.TrimSpace(in.NaturalText)
	if text == "" {
		return domain.PromptSpec{}, &ValidationError{Field: "natural_text", Reason: "must not be empty"}
	}

	taskType := domain.TaskCodeGeneration
	if in.TaskType != "" {
		taskType = domain.TaskType(in.TaskType)
		if !taskType.Valid() {
			return domain.PromptSpec{}, &ValidationError{Field: "task_type", Reason: "unknown task type " + in.TaskType}
		}
	}

	includeReasoning := true
	if in.IncludeReasoning != nil {
		includeReasoning = *in.IncludeReasoning
	}

	return domain.PromptSpec{
		NaturalText:      text,
		TaskType:         taskType,
		IncludeReasoning: includeReasoning,
		Context:          in.Context,
	}, nil
}

// ContextFromMap converts a plain map into an ordered Context.
// Keys are sorted so the result is deterministic regardless of map order.
func ContextFromMap(m map[string]string) domain.Context {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ctx := make(domain.Context, 0, len(m))
	for _, k := range keys {
		ctx = ctx.Add(k, m[k])
	}
	return ctx
}
