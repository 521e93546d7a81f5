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

package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
)

const (
	testRepository = "library"
	testImage      = "busybox"
)

// testLayer is one layer served by fakeRegistry.
type testLayer struct {
	id   string
	blob []byte
}

// fakeRegistry serves a schema 1 manifest and its blobs over TLS.
type fakeRegistry struct {
	server   *httptest.Server
	manifest []byte
	blobs    map[digest.Digest][]byte

	mu       sync.Mutex
	requests []string
}

func newFakeRegistry(t *testing.T, layers ...testLayer) *fakeRegistry {
	t.Helper()

	r := &fakeRegistry{blobs: make(map[digest.Digest][]byte)}

	m := Manifest{SchemaVersion: 1, Name: testRepository + "/" + testImage, Tag: "latest", Architecture: "amd64"}
	for _, l := range layers {
		d := digest.FromBytes(l.blob)
		r.blobs[d] = l.blob
		m.FSLayers = append(m.FSLayers, FSLayer{BlobSum: d})
		m.History = append(m.History, History{V1Compatibility: fmt.Sprintf(`{"id":%q,"parent":""}`, l.id)})
	}
	body, err := json.MarshalIndent(m, "", "   ")
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	r.manifest = body

	r.server = httptest.NewTLSServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.server.Close)
	return r
}

func (r *fakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.requests = append(r.requests, req.URL.Path)
	r.mu.Unlock()

	prefix := "/v2/" + testRepository + "/" + testImage
	switch {
	case req.URL.Path == "/v2/":
		w.WriteHeader(http.StatusOK)
	case strings.HasPrefix(req.URL.Path, prefix+"/manifests/"):
		ref := strings.TrimPrefix(req.URL.Path, prefix+"/manifests/")
		if ref != "latest" && ref != r.manifestDigest().String() {
			http.Error(w, `{"errors":[{"code":"MANIFEST_UNKNOWN"}]}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", MediaTypeSignedManifestV1)
		w.Header().Set("Docker-Content-Digest", r.manifestDigest().String())
		w.Header().Set("Content-Length", strconv.Itoa(len(r.manifest)))
		_, _ = w.Write(r.manifest)
	case strings.HasPrefix(req.URL.Path, prefix+"/blobs/"):
		d := digest.Digest(strings.TrimPrefix(req.URL.Path, prefix+"/blobs/"))
		blob, ok := r.blobs[d]
		if !ok {
			http.Error(w, `{"errors":[{"code":"BLOB_UNKNOWN"}]}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
		_, _ = w.Write(blob)
	default:
		http.NotFound(w, req)
	}
}

func (r *fakeRegistry) manifestDigest() digest.Digest {
	return digest.FromBytes(r.manifest)
}

func (r *fakeRegistry) host(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(r.server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	return u.Host
}

func (r *fakeRegistry) coordinates(t *testing.T, ref string) Coordinates {
	t.Helper()
	return Coordinates{
		Registry:   r.host(t),
		Repository: testRepository,
		Image:      testImage,
		Digest:     ref,
	}
}

func (r *fakeRegistry) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.requests))
	copy(out, r.requests)
	return out
}
