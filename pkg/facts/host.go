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
	"os"
	"slices"
	"strings"

	"github.com/coreos/go-systemd/v22/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/kubelet"
)

// Default os-release locations, primary first.
var DefaultReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// FactHostname is the collected host name.
const FactHostname = "hostname"

var (
	debianIDs = []string{"debian", "ubuntu"}
	redHatIDs = []string{"rhel", "fedora", "centos"}
)

// Host holds what HostCollector learned about the machine.
type Host struct {
	OSFamily   string
	OSCodename string
	Hostname   string
	IsSystemd  bool
}

// Facts returns the host facts. Empty values are left out.
func (h *Host) Facts() kubelet.Facts {
	f := kubelet.Facts{}
	if h.OSFamily != "" {
		f[kubelet.FactOSFamily] = h.OSFamily
	}
	if h.OSCodename != "" {
		f[kubelet.FactOSCodename] = h.OSCodename
	}
	if h.Hostname != "" {
		f[FactHostname] = h.Hostname
	}
	return f
}

// Overrides returns the overrides the host implies by default.
func (h *Host) Overrides() kubelet.Overrides {
	return kubelet.Overrides{kubelet.OverrideIsSystemd: h.IsSystemd}
}

// HostCollector introspects the local machine. Zero values use the real
// host; the function fields exist for tests.
type HostCollector struct {
	ReleasePaths []string
	Hostname     func() (string, error)
	IsSystemd    func() bool
}

// Collect reads os-release, the host name and whether systemd is PID 1.
// A missing os-release leaves the OS facts empty rather than failing.
func (c *HostCollector) Collect(ctx context.Context) (*Host, error) {
	slog.Info("collecting host facts")

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, "host collection canceled", err)
	}

	h := &Host{}

	release, err := c.readRelease()
	if err != nil {
		return nil, err
	}
	h.OSFamily = OSFamily(release["ID"], release["ID_LIKE"])
	h.OSCodename = release["VERSION_CODENAME"]

	hostname := c.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	if name, err := hostname(); err != nil {
		slog.Warn("failed to read hostname", "error", err)
	} else {
		h.Hostname = name
	}

	isSystemd := c.IsSystemd
	if isSystemd == nil {
		isSystemd = util.IsRunningSystemd
	}
	h.IsSystemd = isSystemd()

	slog.Debug("host facts collected",
		"os_family", h.OSFamily,
		"oscodename", h.OSCodename,
		"hostname", h.Hostname,
		"is_systemd", h.IsSystemd)

	return h, nil
}

func (c *HostCollector) readRelease() (map[string]string, error) {
	paths := c.ReleasePaths
	if len(paths) == 0 {
		paths = DefaultReleasePaths
	}

	parser := NewParser(WithTrimChars(`"'`))
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		return parser.ParseFile(path)
	}

	slog.Warn("no os-release file found", "paths", paths)
	return map[string]string{}, nil
}

// OSFamily maps os-release ID and ID_LIKE to a family name: Debian for the
// Debian and Ubuntu lineage, RedHat for RHEL, Fedora and CentOS, otherwise
// the title-cased ID.
func OSFamily(id, idLike string) string {
	ids := append([]string{strings.ToLower(id)}, strings.Fields(strings.ToLower(idLike))...)
	for _, candidate := range ids {
		switch {
		case slices.Contains(debianIDs, candidate):
			return "Debian"
		case slices.Contains(redHatIDs, candidate):
			return "RedHat"
		}
	}
	if id == "" {
		return ""
	}
	return cases.Title(language.Und).String(id)
}
