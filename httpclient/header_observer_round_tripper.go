/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package httpclient

import "net/http"

// HeaderObserver is notified with the headers of every upstream response, whatever its status.
// quota.Tracker implements it.
type HeaderObserver interface {
	UpdateFromHeader(h http.Header) bool
}

// HeaderObserverRoundTripper passes response headers to an observer.
type HeaderObserverRoundTripper struct {
	Delegate http.RoundTripper
	Observer HeaderObserver
}

// NewHeaderObserverRoundTripper creates a new HeaderObserverRoundTripper.
func NewHeaderObserverRoundTripper(delegate http.RoundTripper, observer HeaderObserver) http.RoundTripper {
	return &HeaderObserverRoundTripper{Delegate: delegate, Observer: observer}
}

// RoundTrip executes the request and feeds the response headers to the observer.
func (rt *HeaderObserverRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := rt.Delegate.RoundTrip(r)
	if err == nil && resp != nil {
		rt.Observer.UpdateFromHeader(resp.Header)
	}
	return resp, err
}
