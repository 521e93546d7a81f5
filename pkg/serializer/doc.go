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

// Package serializer encodes generated documents and decodes facts and
// overrides.
//
// # Formats
//
// JSON output is indented with four spaces, uses ": " between keys and
// values, leaves HTML characters unescaped and ends with a newline. Types
// that marshal themselves in a fixed key order, such as the kubelet config,
// keep that order. YAML output uses two-space indentation. Table output is a
// FIELD/VALUE listing of flattened keys, sorted unless the document
// implements Ordered. Table output cannot be read back.
//
// # Destinations
//
// NewFileWriterOrStdout picks the destination from a path:
//
//	""                      stdout
//	cm://namespace/name     ConfigMap, created or updated by server-side apply
//	anything else           a local file
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatJSON, path)
//	if err != nil {
//	    return err
//	}
//	if c, ok := w.(serializer.Closer); ok {
//	    defer c.Close()
//	}
//	return w.Serialize(ctx, cfg)
//
// # Sources
//
// FromFile reads a local file, an http(s) URL or a ConfigMap URI into any
// type. ConfigMaps are read from their config.yaml or config.json entry:
//
//	overrides, err := serializer.FromFile[map[string]any](ctx, "cm://kube-system/node-overrides")
package serializer
