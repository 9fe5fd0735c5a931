package codec

import (
	"fmt"
	"math"
)

// Default parameters of the adaptive codec.
const (
	DefaultLevels  = 15
	DefaultStep    = 0.01
	DefaultMinStep = 1e-6
	DefaultMaxStep = 1e6
	DefaultGrow    = 2.0
	DefaultShrink  = 0.9
)

// Adaptive is a delta quantizer. It predicts the previous reconstruction and
// quantizes the residual on 2*levels+1 uniform steps. The step grows when the
// residual saturates and shrinks otherwise, within [minStep, maxStep].
type Adaptive struct {
	levels  int
	step    float64
	minStep float64
	maxStep float64
	grow    float64
	shrink  float64

	pred float64
}

// NewAdaptive ...
func NewAdaptive(levels int, step, minStep, maxStep, grow, shrink float64) (*Adaptive, error) {
	if levels < 1 {
		return nil, fmt.Errorf("levels must be at least 1, got %d", levels)
	}
	if !(step > 0) || !(minStep > 0) || maxStep < minStep {
		return nil, fmt.Errorf("invalid step bounds %v in [%v, %v]", step, minStep, maxStep)
	}
	if grow < 1 || !(shrink > 0) || shrink > 1 {
		return nil, fmt.Errorf("grow must be >= 1 and shrink in (0,1], got %v and %v", grow, shrink)
	}
	return &Adaptive{
		levels:  levels,
		step:    math.Min(math.Max(step, minStep), maxStep),
		minStep: minStep,
		maxStep: maxStep,
		grow:    grow,
		shrink:  shrink,
	}, nil
}

// NewAdaptiveFromParams reads the keys levels, step, min-step, max-step,
// grow and shrink, falling back to the defaults.
func NewAdaptiveFromParams(p Params) (*Adaptive, error) {
	return NewAdaptive(
		int(p.get("levels", DefaultLevels)),
		p.get("step", DefaultStep),
		p.get("min-step", DefaultMinStep),
		p.get("max-step", DefaultMaxStep),
		p.get("grow", DefaultGrow),
		p.get("shrink", DefaultShrink),
	)
}

// Encode implements the Codec interface.
func (a *Adaptive) Encode(v float64) Token {
	q := 0.0
	if !math.IsNaN(v) {
		q = math.Round((v - a.pred) / a.step)
		q = math.Max(-float64(a.levels), math.Min(float64(a.levels), q))
	}
	level := int64(q)
	a.advance(level)
	return zigzag(level)
}

// Decode implements the Codec interface.
func (a *Adaptive) Decode(t Token) float64 {
	level := unzigzag(t)
	if level > int64(a.levels) {
		level = int64(a.levels)
	} else if level < -int64(a.levels) {
		level = -int64(a.levels)
	}
	a.advance(level)
	return a.pred
}

func (a *Adaptive) advance(level int64) {
	a.pred += float64(level) * a.step

	abs := level
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs == int64(a.levels):
		a.step = math.Min(a.step*a.grow, a.maxStep)
	case abs <= int64(a.levels)/2:
		a.step = math.Max(a.step*a.shrink, a.minStep)
	}
}

// Clone implements the Codec interface.
func (a *Adaptive) Clone() Codec {
	c := *a
	return &c
}

// Prediction returns the last reconstructed value.
func (a *Adaptive) Prediction() float64 { return a.pred }

// Step returns the current quantization step.
func (a *Adaptive) Step() float64 { return a.step }

// zigzag maps signed levels to small unsigned tokens so that they varint
// encode compactly on the wire.
func zigzag(v int64) Token {
	return Token(uint64(v<<1) ^ uint64(v>>63))
}

func unzigzag(t Token) int64 {
	u := uint64(t)
	return int64(u>>1) ^ -int64(u&1)
}
