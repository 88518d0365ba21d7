package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check their own invariants
// after parsing. A failing Validate keeps the value out of the cache.
type Validator interface {
	Validate() error
}

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	mu      sync.Mutex
	entries = map[reflect.Type]*entry{}

	dotenvOnce sync.Once
)

// Load parses the environment into v. Each config type is parsed at most once
// per process; later calls copy the cached value. The default .env file is
// read on first use when present.
//
//	var cfg twofactor.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	e := lookup(reflect.TypeFor[T]())
	e.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			e.err = errors.Join(ErrParsingConfig, err)
			return
		}
		if val, ok := any(&parsed).(Validator); ok {
			if err := val.Validate(); err != nil {
				e.err = errors.Join(ErrInvalidConfig, err)
				return
			}
		}
		e.value = parsed
	})
	if e.err != nil {
		// Allow a retry once the environment is fixed.
		forget(reflect.TypeFor[T](), e)
		return e.err
	}

	cached, ok := e.value.(T)
	if !ok {
		return ErrConfigNotLoaded
	}
	*v = cached
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: load %T: %v", *v, err))
	}
}

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. The first file wins on conflicts.
func LoadEnv(files ...string) error {
	dotenvOnce.Do(func() {})
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// ResetCache drops every cached config so the next Load parses again.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	entries = map[reflect.Type]*entry{}
}

func lookup(t reflect.Type) *entry {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[t]
	if !ok {
		e = &entry{}
		entries[t] = e
	}
	return e
}

func forget(t reflect.Type, e *entry) {
	mu.Lock()
	defer mu.Unlock()
	if entries[t] == e {
		delete(entries, t)
	}
}
