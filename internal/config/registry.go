package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/homophoner/pkg/provider/homophones"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ModelFactory opens an embedding model. It may take a long time (reading a
// vectors file, connecting to a database) and must honour ctx.
type ModelFactory func(ctx context.Context, entry ProviderEntry) (vectors.Model, error)

// PhoneticFactory constructs a pronunciation dictionary. Data is read lazily
// by the dictionary itself, so construction is cheap.
type PhoneticFactory func(entry ProviderEntry) (phonetic.Dictionary, error)

// HomophonesFactory constructs a user homophone source.
type HomophonesFactory func(ctx context.Context, entry ProviderEntry) (homophones.Source, error)

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	models     map[string]ModelFactory
	phonetic   map[string]PhoneticFactory
	homophones map[string]HomophonesFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		models:     make(map[string]ModelFactory),
		phonetic:   make(map[string]PhoneticFactory),
		homophones: make(map[string]HomophonesFactory),
	}
}

// RegisterModel registers an embedding model factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterModel(name string, factory ModelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = factory
}

// RegisterPhonetic registers a pronunciation dictionary factory under name.
func (r *Registry) RegisterPhonetic(name string, factory PhoneticFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phonetic[name] = factory
}

// RegisterHomophones registers a user homophone source factory under name.
func (r *Registry) RegisterHomophones(name string, factory HomophonesFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.homophones[name] = factory
}

// CreateModel opens the embedding model registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateModel(ctx context.Context, entry ProviderEntry) (vectors.Model, error) {
	r.mu.RLock()
	factory, ok := r.models[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: model/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}

// CreatePhonetic constructs the dictionary registered under entry.Name.
func (r *Registry) CreatePhonetic(entry ProviderEntry) (phonetic.Dictionary, error) {
	r.mu.RLock()
	factory, ok := r.phonetic[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: phonetic/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateHomophones constructs the user homophone source registered under
// entry.Name.
func (r *Registry) CreateHomophones(ctx context.Context, entry ProviderEntry) (homophones.Source, error) {
	r.mu.RLock()
	factory, ok := r.homophones[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: homophones/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}
