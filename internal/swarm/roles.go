package swarm

import "github.com/voicedev/vox/internal/domain"

// roleInstructions binds each role to its specialization preamble. The
// preamble is prepended to the rendered prompt for that role's invocation.
var roleInstructions = map[domain.AgentRole]string{
	domain.RoleArchitect: "You are a software architect. Design system architecture, " +
		"choose appropriate patterns, and plan component structure.",
	domain.RoleDeveloper: "You are a software developer. Implement clean, maintainable code " +
		"following best practices and the provided architecture.",
	domain.RoleReviewer: "You are a code reviewer. Review code for quality, correctness, " +
		"security issues, and suggest improvements.",
	domain.RoleTester: "You are a QA engineer. Write comprehensive tests, identify edge cases, " +
		"and ensure code quality through testing.",
}

const fallbackInstruction = "You are a helpful AI assistant."

// Instruction returns the specialization preamble for a role
func Instruction(role domain.AgentRole) string {
	if s, ok := roleInstructions[role]; ok {
		return s
	}
	return fallbackInstruction
}
