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

// Package kubelet assembles a kubelet configuration document from host facts
// and operator overrides.
//
// Assemble evaluates a fixed list of rules. Each rule may add a key or
// replace the value of an earlier one, and Config keeps keys in the order
// they were first set, so the serialized document lists them in rule order.
//
// Required inputs are the allow_privileged override and the first entry of
// the roles fact. Assemble checks both before any rule runs and returns a
// MISSING_OVERRIDE or MISSING_FACT structured error.
//
// Usage:
//
//	cfg, err := kubelet.Assemble(
//	    kubelet.Facts{"roles": []string{"kubernetes-master"}, "cloud": "gce"},
//	    kubelet.Overrides{"allow_privileged": "true"},
//	)
//	if err != nil {
//	    return err
//	}
//	out, err := serializer.Marshal(serializer.FormatJSON, cfg)
package kubelet
