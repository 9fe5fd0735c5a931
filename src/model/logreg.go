package model

import "math"

// LogReg is a mini-batch SGD logistic regression learner with L2
// regularisation. The step size decays with the model's age.
type LogReg struct {
	learningRate float64
	lambda       float64
}

// NewLogReg ...
func NewLogReg(learningRate, lambda float64) *LogReg {
	return &LogReg{
		learningRate: learningRate,
		lambda:       lambda,
	}
}

// Update implements the Learner interface.
func (lr *LogReg) Update(m Model, data Dataset, epochs, batches int) error {
	s, ok := m.(Scorer)
	if !ok {
		return errNotScorer(m)
	}
	if len(data) == 0 {
		return nil
	}
	if batches <= 0 || batches > len(data) {
		batches = len(data)
	}
	size := (len(data) + batches - 1) / batches

	for e := 0; e < epochs; e++ {
		for start := 0; start < len(data); start += size {
			end := start + size
			if end > len(data) {
				end = len(data)
			}
			lr.step(s, data[start:end])
		}
	}
	return nil
}

func (lr *LogReg) step(s Scorer, batch Dataset) {
	rate := lr.learningRate / (1 + lr.lambda*s.Age())
	n := float64(len(batch))

	// gradients are computed against the weights before the step
	grads := make([]float64, len(batch))
	for i, inst := range batch {
		grads[i] = inst.Label - sigmoid(s.Score(inst.Features))
	}
	for i, inst := range batch {
		decay := 0.0
		if i == 0 {
			decay = rate * lr.lambda
		}
		s.Step(inst.Features, rate*grads[i]/n, decay)
	}
	s.SetAge(s.Age() + n)
}

// Error implements the Learner interface.
func (lr *LogReg) Error(m Model, data Dataset) float64 {
	s, ok := m.(Scorer)
	if !ok || len(data) == 0 {
		return 0
	}
	wrong := 0
	for _, inst := range data {
		p := 0.0
		if sigmoid(s.Score(inst.Features)) >= 0.5 {
			p = 1
		}
		if p != inst.Label {
			wrong++
		}
	}
	return float64(wrong) / float64(len(data))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
