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
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
	"github.com/NVIDIA/cns-nodekit/pkg/kubelet"
	"github.com/NVIDIA/cns-nodekit/pkg/serializer"
)

// Collector introspects the host.
type Collector interface {
	Collect(ctx context.Context) (*Host, error)
}

// Sources names every place facts and overrides come from. Later sources
// win: host < file < pairs.
type Sources struct {
	// FactsFile and OverridesFile are local paths, http(s) URLs or
	// cm://namespace/name ConfigMap URIs.
	FactsFile     string
	OverridesFile string

	// FactPairs and OverridePairs are KEY=VALUE strings. The roles fact
	// is split on commas.
	FactPairs     []string
	OverridePairs []string

	// Host, when set, contributes host facts and the is_systemd override.
	Host Collector

	// Kubeconfig is used for ConfigMap URIs. Empty uses the default discovery.
	Kubeconfig string
}

// Resolve loads and merges all sources.
func (s Sources) Resolve(ctx context.Context) (kubelet.Facts, kubelet.Overrides, error) {
	facts := kubelet.Facts{}
	overrides := kubelet.Overrides{}

	if s.Host != nil {
		hostCtx, cancel := context.WithTimeout(ctx, defaults.CollectorTimeout)
		h, err := s.Host.Collect(hostCtx)
		cancel()
		if err != nil {
			return nil, nil, err
		}
		maps.Copy(facts, h.Facts())
		maps.Copy(overrides, h.Overrides())
	}

	if s.FactsFile != "" {
		m, err := loadFile(ctx, s.FactsFile, s.Kubeconfig)
		if err != nil {
			return nil, nil, err
		}
		maps.Copy(facts, m)
	}
	if s.OverridesFile != "" {
		m, err := loadFile(ctx, s.OverridesFile, s.Kubeconfig)
		if err != nil {
			return nil, nil, err
		}
		maps.Copy(overrides, m)
	}

	parser := NewParser()
	factPairs, err := parser.ParsePairs(s.FactPairs)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range factPairs {
		if k == kubelet.FactRoles {
			facts[k] = SplitList(v)
			continue
		}
		facts[k] = v
	}

	overridePairs, err := parser.ParsePairs(s.OverridePairs)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range overridePairs {
		overrides[k] = v
	}

	slog.Debug("facts resolved", "facts", len(facts), "overrides", len(overrides))
	return facts, overrides, nil
}

// LoadFile reads a flat mapping from a YAML or JSON document.
func LoadFile(ctx context.Context, path string) (map[string]any, error) {
	return loadFile(ctx, path, "")
}

func loadFile(ctx context.Context, path, kubeconfig string) (map[string]any, error) {
	m, err := serializer.FromFileWithKubeconfig[map[string]any](ctx, path, kubeconfig)
	if err != nil {
		return nil, err
	}
	if *m == nil {
		return map[string]any{}, nil
	}
	return *m, nil
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
