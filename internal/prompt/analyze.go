package prompt

import (
	"strings"

	"github.com/voicedev/vox/internal/domain"
)

// intentKeywords maps an intent label to trigger words. Checked in the
// order of intentOrder so results stay deterministic.
var intentKeywords = map[string][]string{
	"create":  {"create", "build", "make", "generate", "scaffold"},
	"modify":  {"change", "update", "modify", "refactor", "improve"},
	"debug":   {"fix", "debug", "resolve", "error", "bug"},
	"explain": {"explain", "describe", "what is", "how does"},
	"test":    {"test", "testing", "unit test", "integration test"},
}

var intentOrder = []string{"create", "modify", "debug", "explain", "test"}

// ExtractIntent derives a coarse intent label from natural text,
// defaulting to the task type when no keyword matches.
func ExtractIntent(text string, taskType domain.TaskType) string {
	lower := strings.ToLower(text)
	for _, intent := range intentOrder {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return intent
			}
		}
	}
	return string(taskType)
}

var entityTables = []struct {
	key    string
	values []string
}{
	{"language", []string{"python", "javascript", "typescript", "java", "go", "rust"}},
	{"framework", []string{"fastapi", "django", "flask", "react", "vue", "express"}},
	{"pattern", []string{"rest api", "microservice", "crud", "authentication"}},
}

// ExtractEntities pulls well-known languages, frameworks and patterns out
// of natural text. First match per category wins.
func ExtractEntities(text string) domain.Context {
	lower := strings.ToLower(text)
	var ctx domain.Context
	for _, table := range entityTables {
		for _, v := range table.values {
			if strings.Contains(lower, v) {
				ctx = ctx.Add(table.key, v)
				break
			}
		}
	}
	return ctx
}
