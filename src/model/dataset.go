package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Dim returns one more than the largest feature index of the dataset.
func (d Dataset) Dim() int {
	dim := 0
	for _, inst := range d {
		for k := range inst.Features {
			if k+1 > dim {
				dim = k + 1
			}
		}
	}
	return dim
}

// ReadDataset parses instances in the SVMlight format, one per line:
//
//	<label> <index>:<value> <index>:<value> ...
//
// Positive labels map to 1, anything else to 0. Indexes are zero-based.
// Empty lines and lines starting with # are skipped.
func ReadDataset(r io.Reader) (Dataset, error) {
	var res Dataset

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad label %q", line, fields[0])
		}

		inst := Instance{Features: make(map[int]float64, len(fields)-1)}
		if label > 0 {
			inst.Label = 1
		}

		for _, f := range fields[1:] {
			parts := strings.SplitN(f, ":", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("line %d: bad feature %q", line, f)
			}
			idx, err := strconv.Atoi(parts[0])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("line %d: bad index %q", line, parts[0])
			}
			val, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q", line, parts[1])
			}
			inst.Features[idx] = val
		}

		res = append(res, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDataset(f)
}
