// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kubelet

import (
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Facts describe the host. They are read-only to Assemble.
type Facts map[string]any

// Overrides are operator supplied settings. Values are usually strings and
// are coerced where a rule needs a boolean.
type Overrides map[string]any

// Get returns the fact stored under key. Nil values count as absent.
func (f Facts) Get(key string) (any, bool) {
	return lookup(f, key)
}

// GetString returns the fact under key rendered as a string.
func (f Facts) GetString(key string) (string, bool) {
	v, ok := lookup(f, key)
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Truthy reports whether the fact under key is set to a non-empty value.
func (f Facts) Truthy(key string) bool {
	v, ok := lookup(f, key)
	return ok && truthy(v)
}

// FirstRole returns the first entry of the roles fact.
func (f Facts) FirstRole() (string, error) {
	v, ok := lookup(f, FactRoles)
	if !ok {
		return "", missingFact(FactRoles)
	}

	switch roles := v.(type) {
	case []string:
		if len(roles) > 0 {
			return roles[0], nil
		}
	case []any:
		if len(roles) > 0 && roles[0] != nil {
			return stringify(roles[0]), nil
		}
	case string:
		if roles != "" {
			return roles, nil
		}
	}
	return "", missingFact(FactRoles + "[0]")
}

// Get returns the override stored under key. Nil values count as absent.
func (o Overrides) Get(key string) (any, bool) {
	return lookup(o, key)
}

// Has reports whether the override is set.
func (o Overrides) Has(key string) bool {
	_, ok := lookup(o, key)
	return ok
}

// Lower returns the override rendered as a lower-cased string, or "" when
// it is not set.
func (o Overrides) Lower(key string) string {
	v, ok := lookup(o, key)
	if !ok {
		return ""
	}
	return cases.Lower(language.Und).String(stringify(v))
}

// Bool coerces the override to a boolean: true only for a boolean true or a
// string equal to "true" in any case.
func (o Overrides) Bool(key string) bool {
	return o.Lower(key) == "true"
}

// Truthy reports whether the override is set to a value that reads as
// enabled. Strings that parse as booleans use that value, so "false" and
// "0" are not truthy; any other non-empty string is. This is stricter than
// treating every non-empty string as enabled.
func (o Overrides) Truthy(key string) bool {
	v, ok := lookup(o, key)
	return ok && truthy(v)
}

func lookup[M ~map[string]any](m M, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		return true
	}
}

func missingFact(name string) error {
	return apperrors.NewWithContext(apperrors.ErrCodeMissingFact,
		"required fact is not set", map[string]any{"fact": name})
}
