package domain

// TaskType classifies what kind of generation a prompt asks for
type TaskType string

const (
	TaskCodeGeneration TaskType = "code_generation"
	TaskReview         TaskType = "review"
	TaskTestGeneration TaskType = "test_generation"
	TaskRefactor       TaskType = "refactor"
	TaskDebug          TaskType = "debug"
	TaskExplain        TaskType = "explain"
)

// KnownTaskTypes lists every task type accepted by the prompt builder
var KnownTaskTypes = []TaskType{
	TaskCodeGeneration,
	TaskReview,
	TaskTestGeneration,
	TaskRefactor,
	TaskDebug,
	TaskExplain,
}

// Valid reports whether t is a recognized task type
func (t TaskType) Valid() bool {
	for _, k := range KnownTaskTypes {
		if t == k {
			return true
		}
	}
	return false
}

// AgentRole identifies one specialized step in the swarm pipeline
type AgentRole string

const (
	RoleArchitect AgentRole = "architect"
	RoleDeveloper AgentRole = "developer"
	RoleReviewer  AgentRole = "reviewer"
	RoleTester    AgentRole = "tester"
)

// RoleOrder is the fixed execution order of the swarm.
// Later roles consume earlier roles' output, so the order is significant.
var RoleOrder = []AgentRole{RoleArchitect, RoleDeveloper, RoleReviewer, RoleTester}

// PipelineStatus represents the state of a pipeline run
type PipelineStatus string

const (
	PipelinePending   PipelineStatus = "pending"
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
	PipelinePartial   PipelineStatus = "partial"
	PipelineFailed    PipelineStatus = "failed"
)

// Terminal reports whether the status is final
func (s PipelineStatus) Terminal() bool {
	return s == PipelineCompleted || s == PipelinePartial || s == PipelineFailed
}
