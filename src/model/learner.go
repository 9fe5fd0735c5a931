package model

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/common"
)

// Instance is a labelled example. Labels are 0 or 1.
type Instance struct {
	Features map[int]float64 `codec:"x"`
	Label    float64         `codec:"y"`
}

// Dataset is the local data of a node.
type Dataset []Instance

// Scorer is implemented by linear models the LogReg learner can train.
type Scorer interface {
	Model
	// Score returns w.x + bias.
	Score(x map[int]float64) float64
	// Step applies w = (1-decay)*w + scale*x and bias += scale.
	Step(x map[int]float64, scale, decay float64)
}

// Learner trains and evaluates models of a holder position.
type Learner interface {
	// Update runs epochs passes over data, split into batches mini-batches
	// each, and increases the model's age by the number of instances
	// processed.
	Update(m Model, data Dataset, epochs, batches int) error
	// Error returns the 0-1 error of m over data.
	Error(m Model, data Dataset) float64
}

// LearnerParams configure a learner.
type LearnerParams struct {
	LearningRate float64 `mapstructure:"learning-rate"`
	Lambda       float64 `mapstructure:"lambda"`
}

// LogRegName is the registry key of the logistic regression learner.
const LogRegName = "logreg"

var learners = map[string]func(LearnerParams) Learner{
	LogRegName: func(p LearnerParams) Learner { return NewLogReg(p.LearningRate, p.Lambda) },
}

// NewLearner returns the learner registered under name.
func NewLearner(name string, params LearnerParams) (Learner, error) {
	ctor, ok := learners[name]
	if !ok {
		return nil, common.NewProtocolErr("Learner", common.UnknownKind, name)
	}
	return ctor(params), nil
}

func errNotScorer(m Model) error {
	return fmt.Errorf("learner cannot train %s models", m.Kind())
}
