package credential

import (
	"context"
	"net/http"
)

// Do implements the policy of spec.md §4.5: the first attempt is
// unauthenticated; if the response status is 4xx, every credential
// pattern matching the request URL is tried in turn until a
// non-4xx response or all patterns are exhausted. Credentials are
// never attached to the first request or sent to a non-matching
// host.
func (b *Broker) Do(ctx context.Context, client *http.Client, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	req, err := newRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if !is4xx(resp.StatusCode) {
		return resp, nil
	}
	resp.Body.Close()

	for _, cred := range b.Matching(req.URL.String()) {
		retryReq, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}
		cred.Apply(retryReq)

		resp, err = client.Do(retryReq)
		if err != nil {
			return nil, err
		}
		if !is4xx(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
	}

	return resp, nil
}

func is4xx(status int) bool { return status >= 400 && status < 500 }

// Transport wraps base (http.DefaultTransport if nil) so that any
// *http.Client using it gets the same unauthenticated-first/retry-on-
// 4xx policy as Do, without callers having to route every request
// through Do explicitly.
func (b *Broker) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &brokerTransport{base: base, broker: b}
}

type brokerTransport struct {
	base   http.RoundTripper
	broker *Broker
}

func (t *brokerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || !is4xx(resp.StatusCode) {
		return resp, err
	}
	resp.Body.Close()

	for _, cred := range t.broker.Matching(req.URL.String()) {
		retryReq := req.Clone(req.Context())
		cred.Apply(retryReq)

		resp, err = t.base.RoundTrip(retryReq)
		if err != nil || !is4xx(resp.StatusCode) {
			return resp, err
		}
		resp.Body.Close()
	}
	return resp, nil
}
