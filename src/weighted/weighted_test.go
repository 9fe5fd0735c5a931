package weighted

import (
	"errors"
	"math"
	"testing"

	"github.com/mosaicnetworks/gossiplearn/src/model"
)

const tolerance = 1e-9

func holder(values [][]float64, ages []float64) model.Holder {
	h := make(model.Holder, len(values))
	for i, v := range values {
		w := make([]float64, len(v))
		copy(w, v)
		h[i] = &model.Linear{Weights: w, ModelAge: ages[i]}
	}
	return h
}

func assertHolder(t *testing.T, got model.Holder, want model.Holder) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g := got[i].(*model.Linear)
		w := want[i].(*model.Linear)
		if math.Abs(g.ModelAge-w.ModelAge) > tolerance {
			t.Fatalf("position %d: age %v, want %v", i, g.ModelAge, w.ModelAge)
		}
		for j := range w.Weights {
			if math.Abs(g.Weights[j]-w.Weights[j]) > tolerance {
				t.Fatalf("position %d: weights %v, want %v", i, g.Weights, w.Weights)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	h := holder([][]float64{{1.5, -2, 3}, {0.1, 1e6}}, []float64{3, 0.25})
	h = append(h, &model.Sparse{Weights: map[int]float64{4: 2, model.BiasIndex: -1}, ModelAge: 7})

	w, err := New(h)
	if err != nil {
		t.Fatal(err)
	}

	// weighted form scales parameters and keeps the age
	first := w.Models()[0].(*model.Linear)
	if first.Weights[0] != 4.5 || first.ModelAge != 3 {
		t.Fatalf("weighted form = %v age %v", first.Weights, first.ModelAge)
	}

	back, err := w.Unweighted()
	if err != nil {
		t.Fatal(err)
	}
	assertHolder(t, back[:2], h[:2])

	s := back[2].(*model.Sparse)
	if math.Abs(s.Weights[4]-2) > tolerance || math.Abs(s.Weights[model.BiasIndex]+1) > tolerance || s.ModelAge != 7 {
		t.Fatalf("sparse round trip = %v age %v", s.Weights, s.ModelAge)
	}
}

func TestNewDoesNotAlias(t *testing.T) {
	h := holder([][]float64{{1, 2}}, []float64{2})
	w, err := New(h)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Multiply(10); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, h, holder([][]float64{{1, 2}}, []float64{2}))
}

func TestIdentityLaws(t *testing.T) {
	h := holder([][]float64{{1, 2, 3}}, []float64{4})
	other := holder([][]float64{{7, 8, 9}}, []float64{1})

	w, _ := New(h)
	o, _ := New(other)
	ref, _ := New(h)

	if err := w.Multiply(1.0); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, w.Models(), ref.Models())

	if err := w.Add(o, 0.0); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, w.Models(), ref.Models())
}

func TestMultiply(t *testing.T) {
	w, _ := New(holder([][]float64{{1, -1}}, []float64{2}))
	if err := w.Multiply(0.25); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, w.Models(), holder([][]float64{{0.5, -0.5}}, []float64{0.5}))
}

func TestInvalidAge(t *testing.T) {
	for _, age := range []float64{0, -1, math.NaN()} {
		_, err := New(holder([][]float64{{1}}, []float64{age}))
		if !errors.Is(err, ErrInvalidAge) {
			t.Fatalf("age %v: expected ErrInvalidAge, got %v", age, err)
		}
	}
}

func TestAddToRejectsNonPositiveResult(t *testing.T) {
	target := holder([][]float64{{1}}, []float64{1})
	delta, _ := New(holder([][]float64{{1}}, []float64{2}))

	// age 1 - 2 < 0
	err := delta.AddTo(target, -1)
	if !errors.Is(err, ErrInvalidAge) {
		t.Fatalf("expected ErrInvalidAge, got %v", err)
	}
	assertHolder(t, target, holder([][]float64{{1}}, []float64{1}))
}

func TestAddToCommitAndUndo(t *testing.T) {
	target := holder([][]float64{{10}}, []float64{1})
	local, _ := New(holder([][]float64{{10}}, []float64{1}))
	remote, _ := New(holder([][]float64{{0}}, []float64{1}))

	delta := local.Clone()
	if err := delta.Add(remote, -1); err != nil {
		t.Fatal(err)
	}
	if err := delta.Multiply(0.25); err != nil {
		t.Fatal(err)
	}

	if err := delta.AddTo(target, -1); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, target, holder([][]float64{{7.5}}, []float64{1}))

	if err := delta.AddTo(target, 1); err != nil {
		t.Fatal(err)
	}
	assertHolder(t, target, holder([][]float64{{10}}, []float64{1}))
}

func TestAgeWeightedMerge(t *testing.T) {
	// a has absorbed three times more training than b
	a := holder([][]float64{{10}}, []float64{3})
	b := holder([][]float64{{0}}, []float64{1})

	wa, _ := New(a)
	wb, _ := New(b)

	da := wa.Clone()
	da.Add(wb, -1)
	da.Multiply(0.5)

	db := wb.Clone()
	db.Add(wa, -1)
	db.Multiply(0.5)

	if err := da.AddTo(a, -1); err != nil {
		t.Fatal(err)
	}
	if err := db.AddTo(b, -1); err != nil {
		t.Fatal(err)
	}

	// eta = 1: both sides land on the age-weighted mean and the total age
	// is preserved
	assertHolder(t, a, holder([][]float64{{7.5}}, []float64{2}))
	assertHolder(t, b, holder([][]float64{{7.5}}, []float64{2}))
}

func TestShapeMismatch(t *testing.T) {
	w, _ := New(holder([][]float64{{1}}, []float64{1}))
	o, _ := New(holder([][]float64{{1}, {2}}, []float64{1, 1}))
	if err := w.Add(o, 1); err == nil {
		t.Fatalf("expected an error for holders of different lengths")
	}
}

type frozen struct{ age float64 }

func (f *frozen) Kind() string { return "frozen" }
func (f *frozen) Clone() model.Model { c := *f; return &c }
func (f *frozen) Clear() { f.age = 0 }
func (f *frozen) Age() float64 { return f.age }
func (f *frozen) SetAge(age float64) { f.age = age }

func TestNotAddable(t *testing.T) {
	if _, err := New(model.Holder{&frozen{age: 1}}); err == nil {
		t.Fatalf("expected an error for a model without Add")
	}
}
