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
	"crypto/tls"
	"net"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
)

// UserAgent is sent with every registry request.
const UserAgent = "cns-nodekit/1.0"

func newTransport(insecureTLS bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		ExpectContinueTimeout: defaults.HTTPExpectContinueTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ForceAttemptHTTP2:     true,

		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecureTLS, //nolint:gosec // opt-in via --insecure-tls
		},
	}
}

// throttledTransport delays requests so no more than the limiter's rate
// reach the registry. It never retries.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newThrottledTransport(base http.RoundTripper, maxRPS float64) http.RoundTripper {
	if maxRPS <= 0 {
		return base
	}
	return &throttledTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(maxRPS), 1),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
