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
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/kubelet"
)

func TestOSFamily(t *testing.T) {
	tests := []struct {
		id     string
		idLike string
		want   string
	}{
		{"debian", "", "Debian"},
		{"ubuntu", "debian", "Debian"},
		{"linuxmint", "ubuntu debian", "Debian"},
		{"rhel", "fedora", "RedHat"},
		{"rocky", "rhel centos fedora", "RedHat"},
		{"fedora", "", "RedHat"},
		{"arch", "", "Arch"},
		{"sles", "suse", "Sles"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+tt.idLike, func(t *testing.T) {
			assert.Equal(t, tt.want, OSFamily(tt.id, tt.idLike))
		})
	}
}

func TestHostCollector_Collect(t *testing.T) {
	c := &HostCollector{
		ReleasePaths: []string{filepath.Join(t.TempDir(), "missing"), "testdata/os-release-ubuntu"},
		Hostname:     func() (string, error) { return "node-1", nil },
		IsSystemd:    func() bool { return true },
	}

	h, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Host{
		OSFamily:   "Debian",
		OSCodename: "vivid",
		Hostname:   "node-1",
		IsSystemd:  true,
	}, h)
	assert.Equal(t, kubelet.Facts{
		kubelet.FactOSFamily:   "Debian",
		kubelet.FactOSCodename: "vivid",
		FactHostname:           "node-1",
	}, h.Facts())
	assert.Equal(t, kubelet.Overrides{kubelet.OverrideIsSystemd: true}, h.Overrides())
}

func TestHostCollector_NoReleaseFile(t *testing.T) {
	c := &HostCollector{
		ReleasePaths: []string{filepath.Join(t.TempDir(), "missing")},
		Hostname:     func() (string, error) { return "", errors.New("no hostname") },
		IsSystemd:    func() bool { return false },
	}

	h, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.Facts())
	assert.False(t, h.IsSystemd)
}

func TestHostCollector_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&HostCollector{}).Collect(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout))
}
