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
package kubelet_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/kubelet"
	"github.com/NVIDIA/cns-nodekit/pkg/serializer"
)

func TestAssemble_GCEMaster(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"roles": []any{"kubernetes-master"}, "cloud": "gce"},
		kubelet.Overrides{"allow_privileged": "true"},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "enableDebuggingHandlers", false)
	assertValue(t, cfg, "cloudProvider", "gce")
	assertValue(t, cfg, "allowPrivileged", true)
	assert.False(t, cfg.Has("experimentalFlannelOverlay"))

	assert.Equal(t, []string{
		"kind", "apiVersion", "enableDebuggingHandlers", "cloudProvider", "config", "allowPrivileged",
	}, cfg.Keys())
}

func TestAssemble_DebianSystemd(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"roles": []any{"node"}, "os_family": "Debian"},
		kubelet.Overrides{"allow_privileged": "false", "is_systemd": true},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "systemContainer", kubelet.SystemContainer)
	assertValue(t, cfg, "cgroupRoot", kubelet.ContainerRuntimeCgroupRoot)
	assertValue(t, cfg, "allowPrivileged", false)
}

func TestAssemble_DebianWithoutSystemd(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"roles": []any{"node"}, "os_family": "Debian"},
		kubelet.Overrides{"allow_privileged": "false", "is_systemd": "false"},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "cgroupRoot", kubelet.RootCgroup)
}

func TestAssemble_VividWins(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"oscodename": "vivid", "os_family": "Debian", "roles": []any{"node"}},
		kubelet.Overrides{"allow_privileged": "false"},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "cgroupRoot", "docker")
	// Overwriting keeps the key where the Debian rule put it.
	keys := cfg.Keys()
	assert.Equal(t, "allowPrivileged", keys[len(keys)-1])
	assert.Equal(t, "cgroupRoot", keys[len(keys)-2])
}

func TestAssemble_VividWithoutDebian(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"oscodename": "vivid", "roles": []any{"node"}},
		kubelet.Overrides{"allow_privileged": "false"},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "cgroupRoot", "docker")
	assert.False(t, cfg.Has("systemContainer"))
}

func TestAssemble_Cloud(t *testing.T) {
	tests := []struct {
		name         string
		role         string
		cloud        any
		wantDebugOff bool
		wantProvider bool
	}{
		{name: "master aws", role: kubelet.MasterRole, cloud: "aws", wantDebugOff: true, wantProvider: true},
		{name: "master vagrant", role: kubelet.MasterRole, cloud: "vagrant", wantDebugOff: true},
		{name: "master vsphere", role: kubelet.MasterRole, cloud: "vsphere", wantDebugOff: true},
		{name: "master azure", role: kubelet.MasterRole, cloud: "azure", wantProvider: true},
		{name: "node gce", role: "node", cloud: "gce", wantProvider: true},
		{name: "node no cloud", role: "node", cloud: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := kubelet.Facts{"roles": []string{tt.role}}
			if tt.cloud != nil {
				facts["cloud"] = tt.cloud
			}
			cfg, err := kubelet.Assemble(facts, kubelet.Overrides{"allow_privileged": "true"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantDebugOff, cfg.Has("enableDebuggingHandlers"))
			assert.Equal(t, tt.wantProvider, cfg.Has("cloudProvider"))
		})
	}
}

func TestAssemble_NetworkProvider(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		provider    string
		wantFlannel bool
		wantPlugin  bool
	}{
		{name: "flannel node", role: "node", provider: "Flannel", wantFlannel: true},
		{name: "flannel master", role: kubelet.MasterRole, provider: "flannel"},
		{name: "opencontrail", role: "node", provider: "OPENCONTRAIL", wantPlugin: true},
		{name: "other", role: "node", provider: "calico"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := kubelet.Assemble(
				kubelet.Facts{"roles": []any{tt.role}},
				kubelet.Overrides{"allow_privileged": "true", "network_provider": tt.provider},
			)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFlannel, cfg.Has("experimentalFlannelOverlay"))
			assert.Equal(t, tt.wantPlugin, cfg.Has("networkPlugin"))
		})
	}
}

func TestAssemble_PodCIDR(t *testing.T) {
	tests := []struct {
		name string
		role string
		cidr any
		want bool
	}{
		{name: "master with cidr", role: kubelet.MasterRole, cidr: "10.123.45.0/29", want: true},
		{name: "master empty cidr", role: kubelet.MasterRole, cidr: ""},
		{name: "node with cidr", role: "node", cidr: "10.123.45.0/29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := kubelet.Assemble(
				kubelet.Facts{"roles": []any{tt.role}, "cbr-cidr": tt.cidr},
				kubelet.Overrides{"allow_privileged": "true"},
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Has("podCIDR"))
		})
	}
}

func TestAssemble_BooleanOverrides(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"roles": []any{"node"}},
		kubelet.Overrides{
			"allow_privileged":     "TRUE",
			"allocate_node_cidrs":  "True",
			"enable_cpu_cfs_quota": "no",
		},
	)
	require.NoError(t, err)

	assertValue(t, cfg, "configureCbr0", true)
	assertValue(t, cfg, "cpuCFSQuota", false)
	assertValue(t, cfg, "allowPrivileged", true)
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name      string
		facts     kubelet.Facts
		overrides kubelet.Overrides
		code      apperrors.ErrorCode
		missing   string
	}{
		{
			name:      "missing allow_privileged",
			facts:     kubelet.Facts{"roles": []any{"node"}},
			overrides: kubelet.Overrides{},
			code:      apperrors.ErrCodeMissingOverride,
			missing:   "allow_privileged",
		},
		{
			name:      "allow_privileged checked before roles",
			facts:     kubelet.Facts{},
			overrides: kubelet.Overrides{},
			code:      apperrors.ErrCodeMissingOverride,
			missing:   "allow_privileged",
		},
		{
			name:      "missing roles",
			facts:     kubelet.Facts{"cloud": "gce"},
			overrides: kubelet.Overrides{"allow_privileged": "true"},
			code:      apperrors.ErrCodeMissingFact,
			missing:   "roles",
		},
		{
			name:      "manifest url enabled without url",
			facts:     kubelet.Facts{"roles": []any{"node"}},
			overrides: kubelet.Overrides{"allow_privileged": "true", "enable_manifest_url": "true", "manifest_url_header": "h"},
			code:      apperrors.ErrCodeMissingOverride,
			missing:   "manifest_url",
		},
		{
			name:      "cluster dns enabled without domain",
			facts:     kubelet.Facts{"roles": []any{"node"}},
			overrides: kubelet.Overrides{"allow_privileged": "true", "enable_cluster_dns": "True", "dns_server": "10.0.0.10"},
			code:      apperrors.ErrCodeMissingOverride,
			missing:   "dns_domain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := kubelet.Assemble(tt.facts, tt.overrides)
			require.Error(t, err)
			assert.Nil(t, cfg)

			var se *apperrors.StructuredError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			if tt.code == apperrors.ErrCodeMissingFact {
				assert.Equal(t, tt.missing, se.Context["fact"])
			} else {
				assert.Equal(t, tt.missing, se.Context["override"])
			}
		})
	}
}

func TestAssemble_DisabledManifestIgnoresMissing(t *testing.T) {
	cfg, err := kubelet.Assemble(
		kubelet.Facts{"roles": []any{"node"}},
		kubelet.Overrides{"allow_privileged": "true", "enable_manifest_url": "false"},
	)
	require.NoError(t, err)
	assert.False(t, cfg.Has("manifestURL"))
}

func TestAssemble_DoesNotMutateInputs(t *testing.T) {
	facts := kubelet.Facts{"roles": []any{kubelet.MasterRole}, "cloud": "gce", "os_family": "Debian"}
	overrides := kubelet.Overrides{"allow_privileged": "true", "is_systemd": "true"}

	_, err := kubelet.Assemble(facts, overrides)
	require.NoError(t, err)

	assert.Len(t, facts, 3)
	assert.Len(t, overrides, 2)
}

func TestAssemble_Golden(t *testing.T) {
	tests := []struct {
		name      string
		facts     kubelet.Facts
		overrides kubelet.Overrides
	}{
		{
			name: "gce_master",
			facts: kubelet.Facts{
				"roles":               []any{kubelet.MasterRole},
				"cloud":               "gce",
				"os_family":           "Debian",
				"hostname_override":   "master-1",
				"non_masquerade_cidr": "10.0.0.0/8",
				"cbr-cidr":            "10.123.45.0/29",
			},
			overrides: kubelet.Overrides{
				"allow_privileged":    "true",
				"enable_cluster_dns":  "true",
				"dns_server":          "10.0.0.10",
				"dns_domain":          "cluster.local",
				"allocate_node_cidrs": "true",
				"network_provider":    "flannel",
				"is_systemd":          "false",
			},
		},
		{
			name: "vagrant_node_vivid",
			facts: kubelet.Facts{
				"roles":        []any{"node"},
				"cloud":        "vagrant",
				"os_family":    "Debian",
				"oscodename":   "vivid",
				"docker_root":  "/mnt/docker",
				"kubelet_root": "/mnt/kubelet",
			},
			overrides: kubelet.Overrides{
				"allow_privileged":     "False",
				"enable_manifest_url":  "True",
				"manifest_url":         "http://manifests.example/pods?node=1&zone=a",
				"manifest_url_header":  "X-Token:abc",
				"network_provider":     "flannel",
				"enable_cpu_cfs_quota": "false",
				"kubelet_port":         "10250",
			},
		},
		{
			name:  "aws_node_opencontrail",
			facts: kubelet.Facts{"roles": "node", "cloud": "aws", "os_family": "RedHat"},
			overrides: kubelet.Overrides{
				"allow_privileged":    true,
				"network_provider":    "OpenContrail",
				"allocate_node_cidrs": "false",
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := kubelet.Assemble(tt.facts, tt.overrides)
			require.NoError(t, err)

			got, err := serializer.Marshal(serializer.FormatJSON, cfg)
			require.NoError(t, err)
			g.Assert(t, tt.name, got)

			again, err := serializer.Marshal(serializer.FormatJSON, cfg)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func assertValue(t *testing.T, cfg *kubelet.Config, key string, want any) {
	t.Helper()
	got, ok := cfg.Get(key)
	require.True(t, ok, "missing key %q", key)
	assert.Equal(t, want, got, "key %q", key)
}
