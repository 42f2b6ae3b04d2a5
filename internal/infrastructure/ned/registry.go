package ned

import (
	"fmt"

	"TNSDigest/internal/domain"
)

// Decoder turns one NED output format into galaxy rows in source order.
type Decoder interface {
	Name() string
	// OutputFormat is the value sent as the "of" query parameter.
	OutputFormat() string
	Decode(raw []byte, contentType string) ([]domain.GalaxyMatch, error)
}

// Registry keeps a mapping from format names to their decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: map[string]Decoder{}}
}

// DefaultRegistry knows every format this package can read.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(VOTableDecoder{})
	r.Register(HTMLDecoder{})
	return r
}

// Register adds or replaces a decoder implementation.
func (r *Registry) Register(decoder Decoder) {
	if r.decoders == nil {
		r.decoders = map[string]Decoder{}
	}
	r.decoders[decoder.Name()] = decoder
}

// Resolve returns a decoder by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Decoder, error) {
	if decoder, ok := r.decoders[name]; ok {
		return decoder, nil
	}
	return nil, fmt.Errorf("ned format %s is not registered", name)
}
