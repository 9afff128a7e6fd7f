// Package prompt turns natural-language requests into structured,
// tagged prompts via validated specs and task-typed templates.
package prompt

import "embed"

//go:embed tasks/*.md
var embeddedFS embed.FS
