package chat

import (
	"context"

	"github.com/courseloom/tutor/internal/logging"
)

// Orchestrator wires generation, tool dispatch, source attribution and
// session history into a single Answer call.
type Orchestrator struct {
	generator *Generator
	registry  *Registry
	sessions  *SessionStore
	logger    logging.Logger
}

func NewOrchestrator(generator *Generator, registry *Registry, sessions *SessionStore, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		registry:  registry,
		sessions:  sessions,
		logger:    logger,
	}
}

// Answer runs one full query turn: fetch history, generate (with the
// registry's tools available), collect the sources the tool round
// produced, then reset them so the next query starts clean. The
// exchange is recorded in the session only after success.
func (o *Orchestrator) Answer(ctx context.Context, query, sessionID string) (string, []Source, error) {
	history := o.sessions.History(sessionID)

	answer, err := o.generator.Generate(ctx, query, history, o.registry.Definitions(), o.registry)
	if err != nil {
		return "", nil, err
	}

	sources := o.registry.CollectSources()
	o.registry.ResetSources()

	o.sessions.Append(sessionID, Exchange{Query: query, Answer: answer})
	return answer, sources, nil
}

// Sessions exposes the backing store for handlers that need to mint IDs.
func (o *Orchestrator) Sessions() *SessionStore {
	return o.sessions
}
