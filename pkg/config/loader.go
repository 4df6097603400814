package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

// LoadDotenv reads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
// Without paths it reads ./.env once per process.
func LoadDotenv(paths ...string) {
	if len(paths) == 0 {
		dotenvOnce.Do(func() { _ = godotenv.Load() })
		return
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Parse fills a fresh T from the environment on every call.
func Parse[T any]() (T, error) {
	LoadDotenv()
	v, err := env.ParseAs[T]()
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}

// Load parses T once per process and copies the cached value into v on
// later calls. A failed parse is not cached.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	key := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}
	parsed, err := Parse[T]()
	if err != nil {
		return err
	}
	cache[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
