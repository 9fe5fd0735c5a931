package model

import "math"

// LinearKind is the registry key of Linear models.
const LinearKind = "linear"

// Linear is a dense linear model. The last weight is the bias.
type Linear struct {
	Weights  []float64 `codec:"w"`
	ModelAge float64   `codec:"age"`
}

// NewLinear returns a zero model over dim features.
func NewLinear(dim int) *Linear {
	return &Linear{
		Weights: make([]float64, dim+1),
	}
}

// Kind implements the Model interface.
func (l *Linear) Kind() string { return LinearKind }

// Clone implements the Model interface.
func (l *Linear) Clone() Model {
	w := make([]float64, len(l.Weights))
	copy(w, l.Weights)
	return &Linear{Weights: w, ModelAge: l.ModelAge}
}

// Clear implements the Model interface.
func (l *Linear) Clear() {
	for i := range l.Weights {
		l.Weights[i] = 0
	}
	l.ModelAge = 0
}

// Age implements the Model interface.
func (l *Linear) Age() float64 { return l.ModelAge }

// SetAge implements the Model interface.
func (l *Linear) SetAge(age float64) { l.ModelAge = age }

// Add implements the Addable interface.
func (l *Linear) Add(other Model, factor float64) error {
	o, ok := other.(*Linear)
	if !ok {
		return errNotAddable(l, other)
	}
	if len(o.Weights) != len(l.Weights) {
		return errShape(LinearKind, len(l.Weights), len(o.Weights))
	}
	if factor == 0 {
		return nil
	}
	for i, w := range o.Weights {
		l.Weights[i] += factor * w
	}
	l.ModelAge += factor * o.ModelAge
	return nil
}

// Params implements the DenseCompressible interface.
func (l *Linear) Params() []float64 { return l.Weights }

// SetParams implements the DenseCompressible interface.
func (l *Linear) SetParams(params []float64) {
	if len(l.Weights) != len(params) {
		l.Weights = make([]float64, len(params))
	}
	copy(l.Weights, params)
}

// Score implements the Scorer interface. Features beyond the model's
// dimension are ignored.
func (l *Linear) Score(x map[int]float64) float64 {
	bias := len(l.Weights) - 1
	s := l.Weights[bias]
	for i, v := range x {
		if i >= 0 && i < bias {
			s += l.Weights[i] * v
		}
	}
	return s
}

// Step implements the Scorer interface.
func (l *Linear) Step(x map[int]float64, scale, decay float64) {
	bias := len(l.Weights) - 1
	if decay != 0 {
		for i := 0; i < bias; i++ {
			l.Weights[i] *= 1 - decay
		}
	}
	for i, v := range x {
		if i >= 0 && i < bias {
			l.Weights[i] += scale * v
		}
	}
	l.Weights[bias] += scale
}

// Norm returns the euclidean norm of the weights.
func (l *Linear) Norm() float64 {
	s := 0.0
	for _, w := range l.Weights {
		s += w * w
	}
	return math.Sqrt(s)
}
