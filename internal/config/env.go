package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// envVar binds an environment variable, without EnvPrefix, to a setter.
type envVar struct {
	key string
	set func(value string) error
}

// applyEnv runs the setter of every variable present in the environment.
func applyEnv(lookup LookupFunc, vars []envVar) error {
	if lookup == nil {
		return nil
	}
	for _, v := range vars {
		value, ok := lookup(EnvPrefix + v.key)
		if !ok {
			continue
		}
		if err := v.set(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, v.key, err)
		}
	}
	return nil
}

func stringVar(p *string) func(string) error {
	return func(v string) error {
		*p = v
		return nil
	}
}

func intVar(p *int) func(string) error {
	return func(v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		*p = n
		return nil
	}
}

func floatVar(p *float64) func(string) error {
	return func(v string) error {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		*p = f
		return nil
	}
}

func boolVar(p *bool) func(string) error {
	return func(v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		*p = b
		return nil
	}
}

// durationVar accepts Go duration strings. A bare number is nanoseconds.
func durationVar(p *time.Duration) func(string) error {
	return func(v string) error {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return err
		}
		*p = d
		return nil
	}
}

func listVar(p *[]string) func(string) error {
	return func(v string) error {
		*p = splitList(v)
		return nil
	}
}

// splitList splits a comma-separated list, trimming blanks around items.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
