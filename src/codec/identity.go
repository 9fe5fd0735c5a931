package codec

import "math"

// Identity is a lossless, stateless codec.
type Identity struct{}

// Encode implements the Codec interface.
func (Identity) Encode(v float64) Token { return Token(math.Float64bits(v)) }

// Decode implements the Codec interface.
func (Identity) Decode(t Token) float64 { return math.Float64frombits(uint64(t)) }

// Clone implements the Codec interface.
func (Identity) Clone() Codec { return Identity{} }

// Float32 is a stateless codec truncating values to single precision.
type Float32 struct{}

// Encode implements the Codec interface.
func (Float32) Encode(v float64) Token { return Token(math.Float32bits(float32(v))) }

// Decode implements the Codec interface.
func (Float32) Decode(t Token) float64 { return float64(math.Float32frombits(uint32(t))) }

// Clone implements the Codec interface.
func (Float32) Clone() Codec { return Float32{} }
