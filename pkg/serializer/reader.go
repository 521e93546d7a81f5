package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/k8s/client"
)

// FormatFromPath determines the serialization format based on file extension.
// Supported extensions:
//   - .json → FormatJSON
//   - .yaml, .yml → FormatYAML
//   - .table, .txt → FormatTable
//
// Returns FormatYAML as default for unknown extensions, since YAML is a
// superset of JSON. Extension matching is case-insensitive.
func FormatFromPath(filePath string) Format {
	lowerPath := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lowerPath, ".json"):
		return FormatJSON
	case strings.HasSuffix(lowerPath, ".yaml"), strings.HasSuffix(lowerPath, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lowerPath, ".table"), strings.HasSuffix(lowerPath, ".txt"):
		return FormatTable
	default:
		slog.Debug("unknown file extension, defaulting to YAML", "filePath", filePath)
		return FormatYAML
	}
}

// Reader handles deserialization of structured data from JSON or YAML.
// Close must be called when the Reader was created by NewFileReader.
type Reader struct {
	format Format
	input  io.Reader
	closer io.Closer
}

// NewReader creates a new Reader for deserializing data from an io.Reader
// source. Table format cannot be read.
func NewReader(format Format, input io.Reader) (*Reader, error) {
	if err := checkReadable(format); err != nil {
		return nil, err
	}

	r := &Reader{
		format: format,
		input:  input,
	}
	if closer, ok := input.(io.Closer); ok {
		r.closer = closer
	}
	return r, nil
}

// NewFileReader creates a new Reader that reads from a local file path or an
// http(s) URL. Remote content is read into memory.
func NewFileReader(ctx context.Context, format Format, filePath string) (*Reader, error) {
	if err := checkReadable(format); err != nil {
		return nil, err
	}

	if isURL(filePath) {
		data, err := NewHttpReader().ReadWithContext(ctx, filePath)
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeNetwork,
				"failed to download remote file", err, map[string]any{"url": filePath})
		}
		return &Reader{format: format, input: bytes.NewReader(data)}, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeFilesystem,
			"failed to open file", err, map[string]any{"path": filePath})
	}

	return &Reader{
		format: format,
		input:  file,
		closer: file,
	}, nil
}

func checkReadable(format Format) error {
	if format.IsUnknown() {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"unknown format", map[string]any{"format": string(format)})
	}
	if format == FormatTable {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "table format does not support deserialization")
	}
	return nil
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Deserialize reads data from the input source and unmarshals it into v,
// which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil {
		return fmt.Errorf("reader is nil")
	}
	if r.input == nil {
		return fmt.Errorf("input source is nil")
	}

	switch r.format {
	case FormatJSON:
		decoder := json.NewDecoder(r.input)
		if err := decoder.Decode(v); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to decode JSON", err)
		}
		return nil

	case FormatYAML:
		decoder := yaml.NewDecoder(r.input)
		if err := decoder.Decode(v); err != nil {
			if err == io.EOF {
				// An empty document decodes to the zero value.
				return nil
			}
			return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to decode YAML", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// Close releases any resources held by the Reader. It is safe to call more
// than once and on a nil Reader.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}

	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// FromFile reads and deserializes a local file, an http(s) URL or a
// ConfigMap URI (cm://namespace/name) into T. File formats are detected from
// the extension.
//
// Example:
//
//	overrides, err := FromFile[map[string]any](ctx, "cm://kube-system/node-overrides")
func FromFile[T any](ctx context.Context, path string) (*T, error) {
	return FromFileWithKubeconfig[T](ctx, path, "")
}

// FromFileWithKubeconfig is FromFile with an explicit kubeconfig for
// ConfigMap URIs. An empty kubeconfig uses the default discovery.
func FromFileWithKubeconfig[T any](ctx context.Context, path, kubeconfig string) (*T, error) {
	if strings.HasPrefix(path, ConfigMapURIScheme) {
		namespace, name, err := parseConfigMapURI(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid ConfigMap URI", err)
		}

		var k8s client.Interface
		if kubeconfig != "" {
			k8s, _, err = client.GetKubeClientWithConfig(kubeconfig)
		} else {
			k8s, _, err = client.GetKubeClient()
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to get kubernetes client", err)
		}
		return FromConfigMap[T](ctx, k8s, namespace, name)
	}

	fileFormat := FormatFromPath(path)
	slog.Debug("determined file format",
		slog.String("path", path),
		slog.String("format", string(fileFormat)),
	)

	ser, err := NewFileReader(ctx, fileFormat, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := ser.Close(); closeErr != nil {
			slog.Warn("failed to close reader", "error", closeErr)
		}
	}()

	var r T
	if err := ser.Deserialize(&r); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"failed to deserialize file", err, map[string]any{"path": path})
	}

	slog.Debug("successfully loaded object from file", slog.String("path", path))
	return &r, nil
}

// FromConfigMap reads the document stored by a ConfigMapWriter, or any
// ConfigMap carrying a config.yaml or config.json entry.
func FromConfigMap[T any](ctx context.Context, k8s client.Interface, namespace, name string) (*T, error) {
	readCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	cm, err := k8s.CoreV1().ConfigMaps(namespace).Get(readCtx, name, metav1.GetOptions{})
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeNetwork, "failed to get ConfigMap", err,
			map[string]any{"namespace": namespace, "name": name})
	}

	format := FormatYAML
	if formatStr, ok := cm.Data["format"]; ok {
		format = Format(formatStr)
	}

	content, ok := cm.Data[DefaultConfigMapDataKey+"."+format.Extension()]
	if !ok {
		for _, f := range []Format{FormatYAML, FormatJSON} {
			if data, found := cm.Data[DefaultConfigMapDataKey+"."+f.Extension()]; found {
				content, format, ok = data, f, true
				break
			}
		}
	}
	if !ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "ConfigMap has no config data",
			map[string]any{"namespace": namespace, "name": name})
	}

	slog.Debug("reading from ConfigMap",
		"namespace", namespace,
		"name", name,
		"format", format,
		"size", len(content))

	reader, err := NewReader(format, strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var result T
	if err := reader.Deserialize(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
