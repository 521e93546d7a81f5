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

package facts

import (
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// Parser reads KEY=VALUE lines such as os-release files.
type Parser struct {
	maxSize      int
	kvDelimiter  string
	trimChars    string
	skipComments bool
}

// WithMaxSize sets the largest file, in bytes, the parser accepts.
// Default is 64KiB.
func WithMaxSize(size int) ParserOption {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithKVDelimiter sets the key/value delimiter. Default is "=".
func WithKVDelimiter(delim string) ParserOption {
	return func(p *Parser) {
		p.kvDelimiter = delim
	}
}

// WithTrimChars sets characters stripped from both ends of values.
func WithTrimChars(chars string) ParserOption {
	return func(p *Parser) {
		p.trimChars = chars
	}
}

// WithSkipComments controls whether lines starting with # are ignored.
// Default is true.
func WithSkipComments(skip bool) ParserOption {
	return func(p *Parser) {
		p.skipComments = skip
	}
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		maxSize:      64 << 10,
		kvDelimiter:  "=",
		skipComments: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads path and returns its key/value pairs. Lines without the
// delimiter or with an empty value are skipped.
func (p *Parser) ParseFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "file path cannot be empty")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeFilesystem,
			"failed to read file", err, map[string]any{"path": path})
	}
	if len(b) > p.maxSize {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"file exceeds maximum size", map[string]any{"path": path, "limit": p.maxSize})
	}
	if !utf8.Valid(b) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"file is not valid UTF-8", map[string]any{"path": path})
	}

	return p.Parse(strings.Split(string(b), "\n")), nil
}

// Parse returns the key/value pairs in lines, skipping malformed ones.
func (p *Parser) Parse(lines []string) map[string]string {
	result := make(map[string]string, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || (p.skipComments && strings.HasPrefix(line, "#")) {
			continue
		}

		key, value, ok := p.split(line)
		if !ok || value == "" {
			slog.Debug("skipping line without value", "line", line)
			continue
		}
		result[key] = value
	}
	return result
}

// ParsePairs parses KEY=VALUE arguments. Unlike Parse it rejects entries
// without a delimiter or with an empty key; empty values are kept.
func (p *Parser) ParsePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := p.split(pair)
		if !ok || key == "" {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				"expected key"+p.kvDelimiter+"value", map[string]any{"value": pair})
		}
		result[key] = value
	}
	return result, nil
}

func (p *Parser) split(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, p.kvDelimiter)
	if !ok {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if p.trimChars != "" {
		value = strings.Trim(value, p.trimChars)
	}
	return strings.TrimSpace(key), value, true
}
