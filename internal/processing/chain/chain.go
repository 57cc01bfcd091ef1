package chain

import (
	"fmt"

	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/opencv/safe"
)

type ProcessingStep interface {
	Apply(input *safe.Mat) (*safe.Mat, error)
	Name() string
}

type entry struct {
	step       ProcessingStep
	bestEffort bool
}

// ProcessingChain runs steps in order, each producing a new Mat. A required
// step that fails aborts the chain. A best-effort step that fails or panics
// is skipped and the chain continues with that step's unmodified input.
type ProcessingChain struct {
	steps  []entry
	logger logger.Logger
}

func NewProcessingChain(log logger.Logger) *ProcessingChain {
	if log == nil {
		log = logger.Nop()
	}
	return &ProcessingChain{logger: log}
}

func (pc *ProcessingChain) AddStep(step ProcessingStep) *ProcessingChain {
	pc.steps = append(pc.steps, entry{step: step})
	return pc
}

func (pc *ProcessingChain) AddBestEffortStep(step ProcessingStep) *ProcessingChain {
	pc.steps = append(pc.steps, entry{step: step, bestEffort: true})
	return pc
}

// Execute never closes input; the returned Mat is always a fresh buffer
// owned by the caller.
func (pc *ProcessingChain) Execute(input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "processing chain"); err != nil {
		return nil, err
	}

	current, err := input.Clone()
	if err != nil {
		return nil, err
	}

	for _, e := range pc.steps {
		result, err := runStep(e.step, current)
		if err != nil {
			if e.bestEffort {
				pc.logger.Warning("ProcessingChain", "best-effort step skipped", map[string]interface{}{
					"step":  e.step.Name(),
					"error": err.Error(),
				})
				continue
			}
			current.Close()
			return nil, fmt.Errorf("step %s failed: %w", e.step.Name(), err)
		}

		pc.logger.Debug("ProcessingChain", "step applied", map[string]interface{}{
			"step":   e.step.Name(),
			"mat":    result.Tag(),
			"mat_id": result.ID(),
		})
		current.Close()
		current = result
	}

	return current, nil
}

func runStep(step ProcessingStep, input *safe.Mat) (result *safe.Mat, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	result, err = step.Apply(input)
	if err != nil {
		result.Close()
		return nil, err
	}
	if result == nil || result.Empty() {
		result.Close()
		return nil, fmt.Errorf("step produced an empty image")
	}
	return result, nil
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, e := range pc.steps {
		names[i] = e.step.Name()
	}
	return names
}
