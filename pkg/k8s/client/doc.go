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

// Package client provides the shared Kubernetes client used to read override
// ConfigMaps and to publish generated kubelet configs.
//
// The client is built once per process with sync.Once:
//
//	clientset, config, err := client.GetKubeClient()
//	if err != nil {
//	    return fmt.Errorf("failed to get kubernetes client: %w", err)
//	}
//
// Discovery order: $KUBECONFIG, then ~/.kube/config, then the in-cluster
// service account. Use BuildKubeClient or GetKubeClientWithConfig for an
// explicit kubeconfig; both bypass the cache.
//
// Anything that accepts an Interface can be tested with
// k8s.io/client-go/kubernetes/fake.
package client
