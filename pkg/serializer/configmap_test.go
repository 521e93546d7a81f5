package serializer

import (
	"context"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestParseConfigMapURI(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		wantNamespace string
		wantName      string
		wantErr       bool
	}{
		{
			name:          "valid URI",
			uri:           "cm://kube-system/kubelet-config",
			wantNamespace: "kube-system",
			wantName:      "kubelet-config",
			wantErr:       false,
		},
		{
			name:          "valid URI with spaces",
			uri:           "cm://kube-system / kubelet-config ",
			wantNamespace: "kube-system",
			wantName:      "kubelet-config",
			wantErr:       false,
		},
		{
			name:          "valid URI with default namespace",
			uri:           "cm://default/overrides",
			wantNamespace: "default",
			wantName:      "overrides",
			wantErr:       false,
		},
		{
			name:    "missing scheme",
			uri:     "kube-system/kubelet-config",
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			uri:     "http://kube-system/kubelet-config",
			wantErr: true,
		},
		{
			name:    "missing name",
			uri:     "cm://kube-system/",
			wantErr: true,
		},
		{
			name:    "missing namespace",
			uri:     "cm:///kubelet-config",
			wantErr: true,
		},
		{
			name:    "missing separator",
			uri:     "cm://kube-system",
			wantErr: true,
		},
		{
			name:    "empty URI",
			uri:     "",
			wantErr: true,
		},
		{
			name:    "only scheme",
			uri:     "cm://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namespace, name, err := parseConfigMapURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseConfigMapURI() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if namespace != tt.wantNamespace {
					t.Errorf("parseConfigMapURI() namespace = %v, want %v", namespace, tt.wantNamespace)
				}
				if name != tt.wantName {
					t.Errorf("parseConfigMapURI() name = %v, want %v", name, tt.wantName)
				}
			}
		})
	}
}

func TestNewConfigMapWriter(t *testing.T) {
	tests := []struct {
		name       string
		namespace  string
		cmName     string
		format     Format
		wantFormat Format
	}{
		{
			name:       "valid JSON format",
			namespace:  "default",
			cmName:     "test",
			format:     FormatJSON,
			wantFormat: FormatJSON,
		},
		{
			name:       "valid YAML format",
			namespace:  "kube-system",
			cmName:     "kubelet-config",
			format:     FormatYAML,
			wantFormat: FormatYAML,
		},
		{
			name:       "unknown format defaults to JSON",
			namespace:  "default",
			cmName:     "test",
			format:     Format("unknown"),
			wantFormat: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := NewConfigMapWriter(tt.namespace, tt.cmName, tt.format)
			if writer.namespace != tt.namespace {
				t.Errorf("NewConfigMapWriter() namespace = %v, want %v", writer.namespace, tt.namespace)
			}
			if writer.name != tt.cmName {
				t.Errorf("NewConfigMapWriter() name = %v, want %v", writer.name, tt.cmName)
			}
			if writer.format != tt.wantFormat {
				t.Errorf("NewConfigMapWriter() format = %v, want %v", writer.format, tt.wantFormat)
			}
		})
	}
}

func TestConfigMapWriter_Serialize(t *testing.T) {
	k8s := fake.NewClientset()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	writer := NewConfigMapWriter("kube-system", "kubelet-config", FormatJSON,
		WithKubeClient(k8s), WithComponent("kubelet"))
	writer.now = func() time.Time { return fixed }

	data := map[string]any{"kind": "KubeletConfiguration"}
	if err := writer.Serialize(context.Background(), data); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	cm, err := k8s.CoreV1().ConfigMaps("kube-system").Get(context.Background(), "kubelet-config", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("failed to get ConfigMap: %v", err)
	}

	want := "{\n    \"kind\": \"KubeletConfiguration\"\n}\n"
	if got := cm.Data["config.json"]; got != want {
		t.Errorf("config.json = %q, want %q", got, want)
	}
	if cm.Data["format"] != "json" {
		t.Errorf("format = %q, want json", cm.Data["format"])
	}
	if cm.Data["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %q", cm.Data["timestamp"])
	}
	if cm.Labels["app.kubernetes.io/component"] != "kubelet" {
		t.Errorf("component label = %q", cm.Labels["app.kubernetes.io/component"])
	}
}

func TestConfigMapWriter_SerializeTwiceUpdates(t *testing.T) {
	k8s := fake.NewClientset()
	writer := NewConfigMapWriter("default", "cfg", FormatYAML, WithKubeClient(k8s), WithDataKey("kubelet"))

	for _, v := range []string{"first", "second"} {
		if err := writer.Serialize(context.Background(), map[string]string{"value": v}); err != nil {
			t.Fatalf("Serialize(%s) error = %v", v, err)
		}
	}

	cm, err := k8s.CoreV1().ConfigMaps("default").Get(context.Background(), "cfg", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("failed to get ConfigMap: %v", err)
	}
	if got := cm.Data["kubelet.yaml"]; !strings.Contains(got, "second") {
		t.Errorf("kubelet.yaml = %q, want the second write", got)
	}
}

func TestFromConfigMap(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]string
		want    string
		wantErr bool
	}{
		{
			name: "yaml with format",
			data: map[string]string{"format": "yaml", "config.yaml": "allow_privileged: \"true\"\n"},
			want: "true",
		},
		{
			name: "json with format",
			data: map[string]string{"format": "json", "config.json": `{"allow_privileged":"false"}`},
			want: "false",
		},
		{
			name: "yaml without format",
			data: map[string]string{"config.yaml": "allow_privileged: \"yes\"\n"},
			want: "yes",
		},
		{
			name:    "no config entry",
			data:    map[string]string{"other": "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k8s := fake.NewClientset(&corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Name: "overrides", Namespace: "kube-system"},
				Data:       tt.data,
			})

			got, err := FromConfigMap[map[string]any](context.Background(), k8s, "kube-system", "overrides")
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromConfigMap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (*got)["allow_privileged"] != tt.want {
				t.Errorf("allow_privileged = %v, want %v", (*got)["allow_privileged"], tt.want)
			}
		})
	}
}

func TestFromConfigMap_NotFound(t *testing.T) {
	_, err := FromConfigMap[map[string]any](context.Background(), fake.NewClientset(), "default", "missing")
	if err == nil {
		t.Fatal("FromConfigMap() expected error for missing ConfigMap")
	}
}
