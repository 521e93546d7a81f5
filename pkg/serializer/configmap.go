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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/k8s/client"
)

const (
	// DefaultConfigMapDataKey is the base name of the data entry holding the
	// document; the format extension is appended.
	DefaultConfigMapDataKey = "config"
	// FieldManager owns the fields written by server-side apply.
	FieldManager = "nodekit"
)

// ConfigMapOption configures a ConfigMapWriter.
type ConfigMapOption func(*ConfigMapWriter)

// WithKubeClient sets the client used for the apply. Without it the shared
// client from client.GetKubeClient is used.
func WithKubeClient(c client.Interface) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.client = c
	}
}

// WithDataKey sets the base name of the data entry.
func WithDataKey(key string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		if key != "" {
			w.dataKey = key
		}
	}
}

// WithComponent sets the app.kubernetes.io/component label.
func WithComponent(component string) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.component = component
	}
}

// ConfigMapWriter writes serialized data to a Kubernetes ConfigMap.
// The ConfigMap is created if it doesn't exist, or updated if it does.
type ConfigMapWriter struct {
	namespace string
	name      string
	format    Format
	dataKey   string
	component string
	client    client.Interface
	now       func() time.Time
}

// NewConfigMapWriter creates a new ConfigMapWriter that writes to the specified
// namespace and ConfigMap name in the given format.
func NewConfigMapWriter(namespace, name string, format Format, opts ...ConfigMapOption) *ConfigMapWriter {
	w := &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    normalizeFormat(format),
		dataKey:   DefaultConfigMapDataKey,
		component: "config",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DataKey returns the name of the data entry the document is written to.
func (w *ConfigMapWriter) DataKey() string {
	return fmt.Sprintf("%s.%s", w.dataKey, w.format.Extension())
}

// Serialize writes data to the ConfigMap. The ConfigMap will have:
//   - data.<key>.<ext>: the serialized document
//   - data.format: the format used
//   - data.timestamp: RFC 3339 time of the write
func (w *ConfigMapWriter) Serialize(ctx context.Context, data any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	k8s := w.client
	if k8s == nil {
		c, config, err := client.GetKubeClient()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to get kubernetes client", err)
		}
		slog.Debug("configmap operation", "auth_method", client.AuthMethod(config))
		k8s = c
	}

	content, err := Marshal(w.format, data)
	if err != nil {
		return err
	}

	configMap := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(map[string]string{
			"app.kubernetes.io/name":       "nodekit",
			"app.kubernetes.io/component":  w.component,
			"app.kubernetes.io/managed-by": FieldManager,
		}).
		WithData(map[string]string{
			w.DataKey(): string(content),
			"format":    string(w.format),
			"timestamp": w.now().UTC().Format(time.RFC3339),
		})

	slog.Info("applying ConfigMap",
		"namespace", w.namespace,
		"name", w.name,
		"key", w.DataKey(),
		"format", w.format)

	// Force takes ownership from earlier field managers.
	_, err = k8s.CoreV1().ConfigMaps(w.namespace).Apply(
		writeCtx,
		configMap,
		metav1.ApplyOptions{
			FieldManager: FieldManager,
			Force:        true,
		},
	)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeNetwork, "failed to apply ConfigMap", err,
			map[string]any{"namespace": w.namespace, "name": w.name})
	}

	return nil
}

// Close is a no-op for ConfigMapWriter as there are no resources to release.
// This method exists to satisfy the Closer interface.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// parseConfigMapURI parses a ConfigMap URI in the format cm://namespace/name
// and returns the namespace and name components.
// Returns an error if the URI is malformed.
func parseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	path := strings.TrimPrefix(uri, ConfigMapURIScheme)

	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])

	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}

	return namespace, name, nil
}
