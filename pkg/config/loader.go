package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg, a pointer to a struct with `env` and `envDefault` tags,
// from the process environment. Nested structs without a prefix share the
// flat namespace, which is how service configs embed middleware.CORSConfig.
func Load(cfg any) error {
	return wrap(env.Parse(cfg))
}

// LoadWithEnv fills cfg from environ only, ignoring the process environment.
func LoadWithEnv(cfg any, environ map[string]string) error {
	return wrap(env.ParseWithOptions(cfg, env.Options{Environment: environ}))
}

func wrap(err error) error {
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
