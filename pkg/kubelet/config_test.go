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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_SetKeepsPosition(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("b", 1)
	cfg.Set("a", 2)
	cfg.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, cfg.Keys())
	assert.Equal(t, 2, cfg.Len())

	v, ok := cfg.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, cfg.Has("a"))
	assert.False(t, cfg.Has("c"))
}

func TestConfig_KeysIsCopy(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("a", 1)

	keys := cfg.Keys()
	keys[0] = "changed"

	assert.Equal(t, []string{"a"}, cfg.Keys())
}

func TestConfig_MarshalJSON(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("zeta", "z")
	cfg.Set("alpha", true)
	cfg.Set("url", "http://h/?a=1&b=<2>")
	cfg.Set("n", 10)

	raw, err := cfg.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":true,"url":"http://h/?a=1&b=<2>","n":10}`, string(raw))
}

func TestConfig_MarshalJSON_Empty(t *testing.T) {
	raw, err := NewConfig().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestConfig_MarshalJSON_Unsupported(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("ch", make(chan int))

	_, err := cfg.MarshalJSON()
	assert.Error(t, err)
}

func TestConfig_MarshalYAML(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("kind", Kind)
	cfg.Set("cloudProvider", "gce")
	cfg.Set("allowPrivileged", true)

	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "kind: KubeletConfiguration\ncloudProvider: gce\nallowPrivileged: true\n", string(b))
}
