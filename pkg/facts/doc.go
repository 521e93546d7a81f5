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

// Package facts gathers the facts and overrides fed to the kubelet config
// assembler.
//
// Sources are merged in increasing precedence:
//
//  1. the host itself (HostCollector): os_family and oscodename from
//     os-release, hostname, and a default is_systemd override from
//     whether systemd is PID 1
//  2. facts and overrides documents (YAML or JSON, local, http(s) or a
//     cm://namespace/name ConfigMap)
//  3. KEY=VALUE pairs from the command line
//
// Example:
//
//	facts, overrides, err := facts.Sources{
//	    OverridesFile: "cm://kube-system/node-overrides",
//	    FactPairs:     []string{"roles=node"},
//	    Host:          &facts.HostCollector{},
//	}.Resolve(ctx)
package facts
