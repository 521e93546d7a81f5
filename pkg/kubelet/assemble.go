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
	"slices"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

const (
	// Kind is the document kind of every generated config.
	Kind = "KubeletConfiguration"
	// APIVersion is the API version of every generated config.
	APIVersion = "componentconfig/v1alpha1"
	// StaticPodManifestDir is where the kubelet looks for static pods.
	StaticPodManifestDir = "/etc/kubernetes/manifests"
	// SystemContainer is the system container created on Debian hosts.
	SystemContainer = "/system"
	// ContainerRuntimeCgroupRoot is the cgroup root used when containers run
	// under the container runtime's cgroup.
	ContainerRuntimeCgroupRoot = "docker"
	// RootCgroup runs containers under the root cgroup.
	RootCgroup = "/"

	// MasterRole is the role name of control plane nodes.
	MasterRole = "kubernetes-master"
)

// Fact names.
const (
	FactRoles             = "roles"
	FactCloud             = "cloud"
	FactHostnameOverride  = "hostname_override"
	FactDockerRoot        = "docker_root"
	FactKubeletRoot       = "kubelet_root"
	FactNonMasqueradeCIDR = "non_masquerade_cidr"
	FactOSFamily          = "os_family"
	FactOSCodename        = "oscodename"
	FactCBRCIDR           = "cbr-cidr"
)

// Override names.
const (
	OverrideEnableManifestURL = "enable_manifest_url"
	OverrideManifestURL       = "manifest_url"
	OverrideManifestURLHeader = "manifest_url_header"
	OverrideEnableClusterDNS  = "enable_cluster_dns"
	OverrideDNSServer         = "dns_server"
	OverrideDNSDomain         = "dns_domain"
	OverrideAllocateNodeCIDRs = "allocate_node_cidrs"
	OverrideNetworkProvider   = "network_provider"
	OverrideIsSystemd         = "is_systemd"
	OverrideEnableCPUCFSQuota = "enable_cpu_cfs_quota"
	OverrideKubeletPort       = "kubelet_port"
	OverrideAllowPrivileged   = "allow_privileged"
)

var (
	// clouds on which the master disables the debugging handlers.
	debugHandlerClouds = []string{"aws", "gce", "vagrant", "vsphere"}
	// clouds that do not get a cloud provider.
	localClouds = []string{"vagrant", "vsphere"}
)

// Assemble builds the kubelet config from facts and overrides. Rules run in
// a fixed order because later rules may overwrite earlier keys and the key
// order is visible in the serialized document. The required inputs are
// checked before any rule runs.
func Assemble(facts Facts, overrides Overrides) (*Config, error) {
	if !overrides.Has(OverrideAllowPrivileged) {
		return nil, missingOverride(OverrideAllowPrivileged)
	}
	role, err := facts.FirstRole()
	if err != nil {
		return nil, err
	}
	isMaster := role == MasterRole

	cfg := NewConfig()
	cfg.Set("kind", Kind)
	cfg.Set("apiVersion", APIVersion)

	cloud, hasCloud := facts.GetString(FactCloud)

	// The debugging handlers allow arbitrary code execution on the master.
	if isMaster && hasCloud && slices.Contains(debugHandlerClouds, cloud) {
		cfg.Set("enableDebuggingHandlers", false)
	}

	if hasCloud && !slices.Contains(localClouds, cloud) {
		cfg.Set("cloudProvider", cloud)
	}

	cfg.Set("config", StaticPodManifestDir)

	if overrides.Lower(OverrideEnableManifestURL) == "true" {
		if err := setFromOverrides(cfg, overrides,
			"manifestURL", OverrideManifestURL,
			"manifestURLHeader", OverrideManifestURLHeader); err != nil {
			return nil, err
		}
	}

	if v, ok := facts.Get(FactHostnameOverride); ok {
		cfg.Set("hostnameOverride", v)
	}

	if overrides.Lower(OverrideEnableClusterDNS) == "true" {
		if err := setFromOverrides(cfg, overrides,
			"clusterDNS", OverrideDNSServer,
			"clusterDomain", OverrideDNSDomain); err != nil {
			return nil, err
		}
	}

	if v, ok := facts.Get(FactDockerRoot); ok {
		cfg.Set("dockerRoot", v)
	}

	if v, ok := facts.Get(FactKubeletRoot); ok {
		cfg.Set("rootDir", v)
	}

	if overrides.Has(OverrideAllocateNodeCIDRs) {
		cfg.Set("configureCbr0", overrides.Lower(OverrideAllocateNodeCIDRs) == "true")
	}

	if v, ok := facts.Get(FactNonMasqueradeCIDR); ok {
		cfg.Set("nonMasqueradeCIDR", v)
	}

	// The master starts the flannel server itself and cannot wait for it.
	if overrides.Lower(OverrideNetworkProvider) == "flannel" && !isMaster {
		cfg.Set("experimentalFlannelOverlay", true)
	}

	if family, _ := facts.GetString(FactOSFamily); family == "Debian" {
		cfg.Set("systemContainer", SystemContainer)
		if overrides.Truthy(OverrideIsSystemd) {
			cfg.Set("cgroupRoot", ContainerRuntimeCgroupRoot)
		} else {
			cfg.Set("cgroupRoot", RootCgroup)
		}
	}

	if codename, _ := facts.GetString(FactOSCodename); codename == "vivid" {
		cfg.Set("cgroupRoot", ContainerRuntimeCgroupRoot)
	}

	if isMaster && facts.Truthy(FactCBRCIDR) {
		v, _ := facts.Get(FactCBRCIDR)
		cfg.Set("podCIDR", v)
	}

	if overrides.Has(OverrideEnableCPUCFSQuota) {
		cfg.Set("cpuCFSQuota", overrides.Lower(OverrideEnableCPUCFSQuota) == "true")
	}

	if overrides.Lower(OverrideNetworkProvider) == "opencontrail" {
		cfg.Set("networkPlugin", "opencontrail")
	}

	if v, ok := overrides.Get(OverrideKubeletPort); ok {
		cfg.Set("port", v)
	}

	cfg.Set("allowPrivileged", overrides.Bool(OverrideAllowPrivileged))

	return cfg, nil
}

// setFromOverrides copies two overrides that are enabled together. Both must
// be present.
func setFromOverrides(cfg *Config, overrides Overrides, firstKey, firstName, secondKey, secondName string) error {
	first, ok := overrides.Get(firstName)
	if !ok {
		return missingOverride(firstName)
	}
	second, ok := overrides.Get(secondName)
	if !ok {
		return missingOverride(secondName)
	}
	cfg.Set(firstKey, first)
	cfg.Set(secondKey, second)
	return nil
}

func missingOverride(name string) error {
	return apperrors.NewWithContext(apperrors.ErrCodeMissingOverride,
		"required override is not set", map[string]any{"override": name})
}
