package domain

import "time"

// AgentResult is the immutable outcome of one role invocation
type AgentResult struct {
	Role    AgentRole     `json:"role"`
	Output  string        `json:"output"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// PipelineRun records one end-to-end execution of the role sequence.
// It is owned by the orchestration invocation that created it and must not
// be mutated after Status becomes terminal.
type PipelineRun struct {
	ID         string           `json:"id"`
	Prompt     StructuredPrompt `json:"prompt"`
	Results    []AgentResult    `json:"results"`
	Status     PipelineStatus   `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// FinalOutput returns the output of the last successful role, or ""
func (r *PipelineRun) FinalOutput() string {
	for i := len(r.Results) - 1; i >= 0; i-- {
		if r.Results[i].Success {
			return r.Results[i].Output
		}
	}
	return ""
}

// CompletedRoles returns the roles that finished successfully, in order
func (r *PipelineRun) CompletedRoles() []AgentRole {
	var roles []AgentRole
	for _, res := range r.Results {
		if res.Success {
			roles = append(roles, res.Role)
		}
	}
	return roles
}
