// Package weighted implements the age-weighted linear algebra used to merge
// models that absorbed different amounts of training.
//
// A Holder is a value view of a model.Holder in weighted form: every model's
// parameters are multiplied by its age while the age itself is kept. Linear
// combinations computed in this form and converted back (divided by the
// resulting age) average peers fairly. Views never alias the models they were
// built from.
package weighted

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

// ErrInvalidAge matches, with errors.Is, conversions of models whose age is
// not positive. It usually means the merge step size is too large or the
// learner does not account ages properly.
var ErrInvalidAge = common.NewProtocolErr("WeightedHolder", common.InvalidAge, "")

// Holder is a model holder in age-weighted form.
type Holder struct {
	models model.Holder
}

// New converts a copy of h to weighted form. h is not modified.
func New(h model.Holder) (*Holder, error) {
	models := make(model.Holder, len(h))
	for i, m := range h {
		w, err := scale(m, i, true)
		if err != nil {
			return nil, err
		}
		models[i] = w
	}
	return &Holder{models: models}, nil
}

// scale returns a fresh model equal to m with its parameters multiplied by
// its age (toWeighted) or divided by it, keeping the age unchanged.
func scale(m model.Model, pos int, toWeighted bool) (model.Model, error) {
	age := m.Age()
	if !(age > 0) {
		return nil, common.NewProtocolErr("WeightedHolder", common.InvalidAge,
			fmt.Sprintf("position %d has age %v, reduce the step size or fix age accounting", pos, age))
	}

	factor := age
	if !toWeighted {
		factor = 1 / age
	}

	res := m.Clone()
	res.Clear()
	a, ok := res.(model.Addable)
	if !ok {
		return nil, notAddable(pos, m)
	}
	if err := a.Add(m, factor); err != nil {
		return nil, err
	}
	res.SetAge(age)
	return res, nil
}

// Len returns the number of positions.
func (w *Holder) Len() int {
	return len(w.models)
}

// Models exposes the weighted models. Callers must not modify them.
func (w *Holder) Models() model.Holder {
	return w.models
}

// Add accumulates factor*other into w, position by position. A zero factor
// is a no-op.
func (w *Holder) Add(other *Holder, factor float64) error {
	if factor == 0 {
		return nil
	}
	if other.Len() != w.Len() {
		return common.NewProtocolErr("WeightedHolder", common.ShapeMismatch,
			fmt.Sprintf("%d positions, got %d", w.Len(), other.Len()))
	}
	for i, m := range w.models {
		a, ok := m.(model.Addable)
		if !ok {
			return notAddable(i, m)
		}
		if err := a.Add(other.models[i], factor); err != nil {
			return fmt.Errorf("position %d: %w", i, err)
		}
	}
	return nil
}

// Multiply scales w by factor. It is Add(w, factor-1).
func (w *Holder) Multiply(factor float64) error {
	return w.Add(w, factor-1)
}

// AddTo adds factor*w to target, whose models are in unweighted form, and
// stores the resulting unweighted models back in target's slots. On error
// target is left unchanged.
func (w *Holder) AddTo(target model.Holder, factor float64) error {
	t, err := New(target)
	if err != nil {
		return err
	}
	if err := t.Add(w, factor); err != nil {
		return err
	}
	res, err := t.Unweighted()
	if err != nil {
		return err
	}
	copy(target, res)
	return nil
}

// Unweighted returns a fresh holder with every model divided by its age.
func (w *Holder) Unweighted() (model.Holder, error) {
	res := make(model.Holder, len(w.models))
	for i, m := range w.models {
		u, err := scale(m, i, false)
		if err != nil {
			return nil, err
		}
		res[i] = u
	}
	return res, nil
}

// Clone returns a deep copy.
func (w *Holder) Clone() *Holder {
	return &Holder{models: w.models.Clone()}
}

func notAddable(pos int, m model.Model) error {
	return common.NewProtocolErr("WeightedHolder", common.NotAddable,
		fmt.Sprintf("position %d holds a %s model", pos, m.Kind()))
}
