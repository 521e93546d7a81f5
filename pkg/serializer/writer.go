package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Format represents the output format type
type Format string

const (
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
	// FormatTable outputs data in table format
	FormatTable Format = "table"
)

const (
	defaultValueKey = "value"

	// JSONIndent is the per-level indentation of JSON output.
	JSONIndent = "    "
	// YAMLIndent is the per-level indentation of YAML output.
	YAMLIndent = 2
)

func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	if f == FormatTable {
		return "txt"
	}
	return string(f)
}

// SupportedFormats returns a list of all supported output formats
// for serialization.
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTable),
	}
}

// Writer handles serialization of configuration data to various formats.
// Close must be called to release file handles when using NewFileWriterOrStdout.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter creates a new Writer with the specified format and output destination.
// If output is nil, os.Stdout will be used.
// If format is unknown, defaults to JSON format.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	return &Writer{
		format: normalizeFormat(format),
		output: output,
	}
}

// NewFileWriterOrStdout returns a Serializer for the given destination. An
// empty path writes to stdout, cm://namespace/name writes to a ConfigMap and
// anything else is created as a file. Call Close on the result when it
// implements Closer.
func NewFileWriterOrStdout(format Format, path string, opts ...ConfigMapOption) (Serializer, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewStdoutWriter(format), nil
	}

	if strings.HasPrefix(trimmed, ConfigMapURIScheme) {
		namespace, name, err := parseConfigMapURI(trimmed)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid ConfigMap URI", err)
		}
		return NewConfigMapWriter(namespace, name, format, opts...), nil
	}

	file, err := os.Create(trimmed)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeFilesystem,
			"failed to create output file", err, map[string]any{"path": trimmed})
	}

	return &Writer{
		format: normalizeFormat(format),
		output: file,
		closer: file,
	}, nil
}

// NewStdoutWriter creates a new Writer that outputs to stdout in the specified format.
func NewStdoutWriter(format Format) *Writer {
	return &Writer{
		format: normalizeFormat(format),
		output: os.Stdout,
	}
}

func normalizeFormat(format Format) Format {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		return FormatJSON
	}
	return format
}

// Close releases any resources associated with the Writer.
// It should be called when done writing, especially for file-based writers.
// It's safe to call Close multiple times or on stdout-based writers.
func (w *Writer) Close() error {
	if w.closer != nil {
		err := w.closer.Close()
		w.closer = nil
		return err
	}
	return nil
}

// Serialize writes data in the configured format. The whole document is
// encoded before anything is written, so a failed encode writes nothing.
func (w *Writer) Serialize(ctx context.Context, data any) error {
	content, err := Marshal(w.format, data)
	if err != nil {
		return err
	}
	if _, err := w.output.Write(content); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeFilesystem, "failed to write output", err)
	}
	return nil
}

// Marshal encodes data in the given format.
//
// JSON output is indented with four spaces, separates items with "," and
// keys from values with ": ", does not escape HTML characters and ends with
// a newline. Identical input always yields identical bytes.
func Marshal(format Format, data any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(data)
	case FormatYAML:
		return marshalYAML(data)
	case FormatTable:
		return marshalTable(data)
	default:
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"unsupported format", map[string]any{"format": string(format)})
	}
}

func marshalJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", JSONIndent)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to serialize to JSON", err)
	}
	return buf.Bytes(), nil
}

func marshalYAML(data any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(data); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to serialize to YAML", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to finalize YAML", err)
	}
	return buf.Bytes(), nil
}

func marshalTable(data any) ([]byte, error) {
	var keys []string
	flat := make(map[string]any)

	if o, ok := data.(Ordered); ok {
		for _, key := range o.Keys() {
			v, _ := o.Get(key)
			flattenValue(flat, reflect.ValueOf(v), key)
			keys = appendNewKeys(keys, flat)
		}
	} else {
		flattenValue(flat, reflect.ValueOf(data), "")
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	if len(flat) == 0 {
		return []byte("<empty>\n"), nil
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintln(tw, "-----\t-----")
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", key, flat[key])
	}
	if err := tw.Flush(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to flush table", err)
	}
	return buf.Bytes(), nil
}

// appendNewKeys appends the flattened keys not yet in keys, sorted, so nested
// values of an ordered document stay grouped under their parent.
func appendNewKeys(keys []string, flat map[string]any) []string {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	var added []string
	for k := range flat {
		if _, ok := seen[k]; !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	return append(keys, added...)
}

func flattenValue(out map[string]any, val reflect.Value, prefix string) {
	if !val.IsValid() {
		if prefix != "" {
			out[prefix] = nil
		}
		return
	}

	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			if prefix != "" {
				out[prefix] = nil
			}
			return
		}
		val = val.Elem()
	}

	//nolint:exhaustive // We handle the common cases explicitly; all others go to default
	switch val.Kind() {
	case reflect.Struct:
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			key := joinKey(prefix, field.Name)
			flattenValue(out, val.Field(i), key)
		}
	case reflect.Map:
		for _, mapKey := range val.MapKeys() {
			key := joinKey(prefix, fmt.Sprintf("%v", mapKey.Interface()))
			flattenValue(out, val.MapIndex(mapKey), key)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			key := joinKey(prefix, fmt.Sprintf("[%d]", i))
			flattenValue(out, val.Index(i), key)
		}
	default:
		if prefix == "" {
			prefix = defaultValueKey
		}
		out[prefix] = val.Interface()
	}
}

func joinKey(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	if suffix == "" {
		return prefix
	}
	return prefix + "." + suffix
}
