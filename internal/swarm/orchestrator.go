// Package swarm drives an ordered pipeline of role-bound model
// invocations, threading each role's output into the next role's prompt.
package swarm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/voicedev/vox/internal/domain"
	"github.com/voicedev/vox/internal/llm"
	"github.com/voicedev/vox/internal/prompt"
)

// PipelineStepError wraps a provider failure that occurred during a
// named role. The pipeline terminates but completed results are kept.
type PipelineStepError struct {
	Role domain.AgentRole
	Err  error
}

func (e *PipelineStepError) Error() string {
	return fmt.Sprintf("pipeline step %s: %v", e.Role, e.Err)
}

func (e *PipelineStepError) Unwrap() error { return e.Err }

// Completer is the slice of the router the orchestrator needs
type Completer interface {
	Route(ctx context.Context, req llm.Request, preferred string) (string, error)
}

// Event describes a pipeline state change, for SSE and TUI consumers
type Event struct {
	RunID  string                `json:"run_id"`
	Role   domain.AgentRole      `json:"role,omitempty"`
	Status domain.PipelineStatus `json:"status"`
	Error  string                `json:"error,omitempty"`
}

// Options configures an orchestrator
type Options struct {
	Roles      []domain.AgentRole // defaults to domain.RoleOrder
	Provider   string             // preferred provider for every role
	NewRequest func(prompt string) llm.Request
	OnEvent    func(Event)
}

// Orchestrator executes the role pipeline. It holds no run state; each
// Run call owns its own PipelineRun, so concurrent runs never interfere.
type Orchestrator struct {
	router   Completer
	renderer *prompt.Renderer
	opts     Options
}

// New creates an orchestrator over the given router and renderer
func New(router Completer, renderer *prompt.Renderer, opts Options) *Orchestrator {
	if len(opts.Roles) == 0 {
		opts.Roles = domain.RoleOrder
	}
	if opts.NewRequest == nil {
		opts.NewRequest = func(p string) llm.Request { return llm.Request{Prompt: p} }
	}
	return &Orchestrator{router: router, renderer: renderer, opts: opts}
}

func (o *Orchestrator) emit(ev Event) {
	if o.opts.OnEvent != nil {
		o.opts.OnEvent(ev)
	}
}

// Run executes the pipeline for one spec. The returned PipelineRun is
// always populated; on failure or cancellation it carries every
// AgentResult gathered before the pipeline stopped, and the error is a
// *PipelineStepError (or the context error on cancellation).
func (o *Orchestrator) Run(ctx context.Context, spec domain.PromptSpec, history []domain.Entry) (*domain.PipelineRun, error) {
	rendered, err := o.renderer.Render(spec, history)
	if err != nil {
		return nil, err
	}

	run := &domain.PipelineRun{
		ID:        uuid.NewString(),
		Prompt:    rendered,
		Status:    domain.PipelinePending,
		StartedAt: time.Now(),
	}

	m := newMachine(o.opts.Roles)
	role, ok := m.start()
	if !ok {
		o.finish(run, domain.PipelineFailed)
		return run, fmt.Errorf("no roles configured")
	}

	run.Status = domain.PipelineRunning
	o.emit(Event{RunID: run.ID, Status: domain.PipelineRunning, Role: role})

	roleSpec := spec
	roleHistory := history

	for {
		// Stop issuing role invocations as soon as the run is cancelled;
		// a provider call already in flight is not interrupted here.
		if err := ctx.Err(); err != nil {
			m.fail()
			o.finish(run, partialStatus(run))
			o.emit(Event{RunID: run.ID, Status: run.Status, Error: err.Error()})
			return run, err
		}

		result, invokeErr := o.invoke(ctx, role, roleSpec, roleHistory)
		run.Results = append(run.Results, result)

		if !result.Success {
			m.fail()
			o.finish(run, partialStatus(run))
			o.emit(Event{RunID: run.ID, Role: role, Status: run.Status, Error: result.Error})
			return run, &PipelineStepError{Role: role, Err: invokeErr}
		}

		o.emit(Event{RunID: run.ID, Role: role, Status: domain.PipelineRunning})

		next, done := m.succeed()
		if done {
			o.finish(run, domain.PipelineCompleted)
			o.emit(Event{RunID: run.ID, Status: domain.PipelineCompleted})
			return run, nil
		}

		// Thread this role's output into the next role's context
		roleSpec.Context = roleSpec.Context.
			Add("previous_role", string(role)).
			Add("previous_output", result.Output)
		role = next
	}
}

// invoke renders and executes one role invocation. The returned error is
// the underlying cause; the AgentResult carries its string form.
func (o *Orchestrator) invoke(ctx context.Context, role domain.AgentRole, spec domain.PromptSpec, history []domain.Entry) (domain.AgentResult, error) {
	start := time.Now()

	rendered, err := o.renderer.Render(spec, history)
	if err != nil {
		return domain.AgentResult{Role: role, Error: err.Error(), Elapsed: time.Since(start)}, err
	}

	req := o.opts.NewRequest(Instruction(role) + "\n\n" + rendered.Text())
	out, err := o.router.Route(ctx, req, o.opts.Provider)
	if err != nil {
		log.Printf("role %s failed: %v", role, err)
		return domain.AgentResult{Role: role, Error: err.Error(), Elapsed: time.Since(start)}, err
	}

	return domain.AgentResult{Role: role, Output: out, Success: true, Elapsed: time.Since(start)}, nil
}

// partialStatus distinguishes a run with salvageable output from one
// that produced nothing usable
func partialStatus(run *domain.PipelineRun) domain.PipelineStatus {
	for _, r := range run.Results {
		if r.Success {
			return domain.PipelinePartial
		}
	}
	return domain.PipelineFailed
}

func (o *Orchestrator) finish(run *domain.PipelineRun, status domain.PipelineStatus) {
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
}
