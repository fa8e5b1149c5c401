package workshop

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// sagaStep is one unit of the finalization flow. Compensate undoes the
// in-memory effect of Action so that earlier steps can be unwound when a
// later step fails. The surrounding database transaction is the backstop
// for anything already persisted.
type sagaStep struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// saga runs steps in order and, on the first failure, replays the
// compensations of every completed step in reverse.
type saga struct {
	steps  []sagaStep
	logger *zap.Logger
}

func newSaga(logger *zap.Logger) *saga {
	return &saga{logger: logger}
}

func (s *saga) addStep(name string, action func(ctx context.Context) error, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{Name: name, Action: action, Compensate: compensate})
}

// run executes the steps. The returned error is the one produced by the
// failing step; compensation errors are logged, not returned, so the
// original cause is never masked.
func (s *saga) run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Action(ctx); err != nil {
			s.compensate(ctx, i-1)
			return fmt.Errorf("saga step %s: %w", step.Name, err)
		}
	}
	return nil
}

func (s *saga) compensate(ctx context.Context, from int) {
	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
}
