// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"fmt"
	"sort"
	"strconv"
)

// Scope identifies which handle a configuration object belongs to.
type Scope int

const (
	// ScopeProducer configures a Producer. Topic properties are accepted too
	// and act as defaults for every topic derived from the producer.
	ScopeProducer Scope = iota

	// ScopeTopic configures a single Topic.
	ScopeTopic
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case ScopeProducer:
		return "producer"
	case ScopeTopic:
		return "topic"
	default:
		return "unknown"
	}
}

// Entry is a single configuration property. Value must be a string, a bool,
// or one of Go's integer or floating point types.
type Entry struct {
	Key   string
	Value any
}

// Entries is an ordered list of configuration properties. Properties are
// applied in order; the first invalid one aborts the build.
type Entries []Entry

// EntriesFromMap converts a map into Entries sorted by key so builds are
// deterministic.
func EntriesFromMap(m map[string]any) Entries {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make(Entries, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: m[k]})
	}
	return entries
}

// Config is the validated, string-typed configuration consumed by Producer
// and Topic. A Config is never modified once a handle has been built from it.
type Config struct {
	scope  Scope
	keys   []string
	values map[string]string
}

// BuildConfig translates entries into a Config for the given scope. Every
// value is coerced to its string form and validated against the property
// table. The first failing entry aborts the build and no Config is returned.
//
// Errors are *InvalidValueTypeError or *RejectedConfigError, both matching
// ErrConfig with errors.Is.
func BuildConfig(scope Scope, entries Entries) (*Config, error) {
	c := &Config{
		scope:  scope,
		values: make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		value, err := coerce(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		if err := c.set(e.Key, value); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// set validates a single property and records it under its canonical name.
func (c *Config) set(key, value string) error {
	prop, ok := lookupProperty(key)
	if !ok {
		return &RejectedConfigError{
			Key:    key,
			Value:  value,
			Reason: fmt.Sprintf("No such configuration property: %q", key),
		}
	}

	if c.scope == ScopeTopic && prop.scope != ScopeTopic {
		return &RejectedConfigError{
			Key:    key,
			Value:  value,
			Reason: fmt.Sprintf("%q is a producer property and cannot be set on a topic", prop.name),
		}
	}

	if err := prop.validate(value); err != nil {
		return &RejectedConfigError{
			Key:    key,
			Value:  value,
			Reason: fmt.Sprintf("Invalid value for configuration property %q: %v", prop.name, err),
		}
	}

	if _, exists := c.values[prop.name]; !exists {
		c.keys = append(c.keys, prop.name)
	}
	c.values[prop.name] = value
	return nil
}

// Scope returns the scope the Config was built for.
func (c *Config) Scope() Scope {
	return c.scope
}

// Get returns the value of a property. Aliases resolve to the canonical
// property, so Get("acks") and Get("request.required.acks") agree.
func (c *Config) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	prop, ok := lookupProperty(key)
	if !ok {
		return "", false
	}
	v, ok := c.values[prop.name]
	return v, ok
}

// Keys returns the canonical names of all set properties in the order they
// were first set.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Len returns the number of distinct properties set.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// coerce converts a configuration value to its string form.
func coerce(key string, v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", &InvalidValueTypeError{Key: key, Type: fmt.Sprintf("%T", v)}
	}
}
