package swarm

import "github.com/voicedev/vox/internal/domain"

// runState is one node of the orchestration state machine
type runState int

const (
	statePending runState = iota
	stateRunning
	stateCompleted
	stateFailed
)

// machine walks the fixed role sequence. Transitions:
//
//	pending          --start-->   running(roles[0])
//	running(role i)  --succeed--> running(roles[i+1]) | completed
//	running(role i)  --fail-->    failed
//
// A role only starts after the previous role succeeded; there is no
// transition out of completed or failed.
type machine struct {
	roles []domain.AgentRole
	idx   int
	state runState
}

func newMachine(roles []domain.AgentRole) *machine {
	return &machine{roles: roles, state: statePending}
}

// start moves pending → running and returns the first role.
// ok is false when there are no roles to run.
func (m *machine) start() (role domain.AgentRole, ok bool) {
	if m.state != statePending || len(m.roles) == 0 {
		return "", false
	}
	m.state = stateRunning
	m.idx = 0
	return m.roles[0], true
}

// succeed records the current role's success and advances. done is true
// when the machine reached the completed state.
func (m *machine) succeed() (next domain.AgentRole, done bool) {
	if m.state != stateRunning {
		return "", true
	}
	m.idx++
	if m.idx >= len(m.roles) {
		m.state = stateCompleted
		return "", true
	}
	return m.roles[m.idx], false
}

// fail moves running → failed. Subsequent roles never start.
func (m *machine) fail() {
	if m.state == stateRunning {
		m.state = stateFailed
	}
}
