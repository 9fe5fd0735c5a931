package codec

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/common"
)

// Token is the compressed representation of one scalar.
type Token uint64

// Codec is a stateful scalar compressor.
type Codec interface {
	// Encode returns the token of v and advances the state as if the token
	// had been decoded.
	Encode(v float64) Token
	// Decode returns the value reconstructed from t and advances the state.
	Decode(t Token) float64
	// Clone returns a deep copy.
	Clone() Codec
}

// Params are the numeric parameters of a codec, keyed by name.
type Params map[string]float64

func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Registered codec names.
const (
	IdentityName = "identity"
	Float32Name  = "float32"
	AdaptiveName = "adaptive"
)

var prototypes = map[string]func(Params) (Codec, error){
	IdentityName: func(Params) (Codec, error) { return Identity{}, nil },
	Float32Name:  func(Params) (Codec, error) { return Float32{}, nil },
	AdaptiveName: func(p Params) (Codec, error) { return NewAdaptiveFromParams(p) },
}

// New returns a prototype codec of the given name, configured with params.
func New(name string, params Params) (Codec, error) {
	ctor, ok := prototypes[name]
	if !ok {
		return nil, common.NewProtocolErr("Codec", common.UnknownKind, name)
	}
	c, err := ctor(params)
	if err != nil {
		return nil, fmt.Errorf("codec %s: %w", name, err)
	}
	return c, nil
}

// Names returns the registered codec names.
func Names() []string {
	return []string{IdentityName, Float32Name, AdaptiveName}
}
