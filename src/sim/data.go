package sim

import (
	"math/rand"

	"github.com/mosaicnetworks/gossiplearn/src/model"
)

// Hyperplane returns a random separating direction over features dimensions.
func Hyperplane(rnd *rand.Rand, features int) []float64 {
	w := make([]float64, features)
	for i := range w {
		w[i] = rnd.NormFloat64()
	}
	return w
}

// Synthetic returns n instances with features uniform in [-1,1], labelled 1
// on the positive side of the hyperplane w and 0 otherwise.
func Synthetic(rnd *rand.Rand, n int, w []float64) model.Dataset {
	data := make(model.Dataset, n)
	for i := range data {
		x := make(map[int]float64, len(w))
		dot := 0.0
		for j, wj := range w {
			v := rnd.Float64()*2 - 1
			x[j] = v
			dot += wj * v
		}
		label := 0.0
		if dot > 0 {
			label = 1
		}
		data[i] = model.Instance{Features: x, Label: label}
	}
	return data
}
