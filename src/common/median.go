package common

import (
	"sort"
)

// Median gets the median number in a slice of numbers
func Median(input []float64) (median float64) {

	// Start by sorting a copy of the slice
	s := make([]float64, len(input))
	copy(s, input)
	sort.Float64s(s)

	// For even numbers we average the two middle numbers
	l := len(s)
	if l == 0 {
		return 0
	} else if l%2 == 0 {
		mid := l/2 - 1
		median = (s[mid] + s[mid+1]) / 2
	} else {
		median = s[l/2]
	}

	return median
}

// Mean returns the arithmetic mean of input, or 0 for an empty slice.
func Mean(input []float64) float64 {
	if len(input) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range input {
		sum += v
	}
	return sum / float64(len(input))
}
