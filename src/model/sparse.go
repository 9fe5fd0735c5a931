package model

// SparseKind is the registry key of Sparse models.
const SparseKind = "sparse"

// BiasIndex is the entry holding the bias of a Sparse model.
const BiasIndex = -1

// Sparse is a linear model over a sparse, unbounded feature space. Missing
// entries are implicit zeros.
type Sparse struct {
	Weights  map[int]float64 `codec:"w"`
	ModelAge float64         `codec:"age"`
}

// NewSparse returns an empty model.
func NewSparse() *Sparse {
	return &Sparse{
		Weights: make(map[int]float64),
	}
}

// Kind implements the Model interface.
func (s *Sparse) Kind() string { return SparseKind }

// Clone implements the Model interface.
func (s *Sparse) Clone() Model {
	w := make(map[int]float64, len(s.Weights))
	for k, v := range s.Weights {
		w[k] = v
	}
	return &Sparse{Weights: w, ModelAge: s.ModelAge}
}

// Clear implements the Model interface.
func (s *Sparse) Clear() {
	s.Weights = make(map[int]float64)
	s.ModelAge = 0
}

// Age implements the Model interface.
func (s *Sparse) Age() float64 { return s.ModelAge }

// SetAge implements the Model interface.
func (s *Sparse) SetAge(age float64) { s.ModelAge = age }

// Add implements the Addable interface. The receiver may be the argument.
func (s *Sparse) Add(other Model, factor float64) error {
	o, ok := other.(*Sparse)
	if !ok {
		return errNotAddable(s, other)
	}
	if factor == 0 {
		return nil
	}
	if s.Weights == nil {
		s.Weights = make(map[int]float64, len(o.Weights))
	}
	for k, v := range o.Weights {
		s.Weights[k] += factor * v
	}
	s.ModelAge += factor * o.ModelAge
	return nil
}

// Entries implements the SparseCompressible interface.
func (s *Sparse) Entries() map[int]float64 { return s.Weights }

// SetEntries implements the SparseCompressible interface.
func (s *Sparse) SetEntries(entries map[int]float64) {
	s.Weights = make(map[int]float64, len(entries))
	for k, v := range entries {
		s.Weights[k] = v
	}
}

// Score implements the Scorer interface.
func (s *Sparse) Score(x map[int]float64) float64 {
	res := s.Weights[BiasIndex]
	for i, v := range x {
		if i != BiasIndex {
			res += s.Weights[i] * v
		}
	}
	return res
}

// Step implements the Scorer interface.
func (s *Sparse) Step(x map[int]float64, scale, decay float64) {
	if s.Weights == nil {
		s.Weights = make(map[int]float64)
	}
	if decay != 0 {
		for k := range s.Weights {
			if k != BiasIndex {
				s.Weights[k] *= 1 - decay
			}
		}
	}
	for i, v := range x {
		if i != BiasIndex {
			s.Weights[i] += scale * v
		}
	}
	s.Weights[BiasIndex] += scale
}
