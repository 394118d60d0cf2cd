/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type MockT struct {
	Failed bool
	Format string
	Args   []interface{}
}

func (t *MockT) FailNow() {
	t.Failed = true
}

func (t *MockT) Errorf(format string, args ...interface{}) {
	t.Format, t.Args = format, args
}

func TestRequireNoErrorInChannel(t *testing.T) {
	mockT := &MockT{}
	ch := make(chan error, 1)
	RequireNoErrorInChannel(mockT, ch)
	require.False(t, mockT.Failed)

	ch <- errors.New("some error")
	RequireNoErrorInChannel(mockT, ch)
	require.True(t, mockT.Failed)
}

func TestRequireErrorInRecorder(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		code        int
		body        string
		wantFailed  bool
	}{
		{name: "ok", contentType: contentTypeAppJSON, code: 400, body: `{"error":"eoa parameter is required"}`},
		{name: "wrong code", contentType: contentTypeAppJSON, code: 500, body: `{"error":"eoa parameter is required"}`, wantFailed: true},
		{name: "wrong content type", contentType: "text/html", code: 400, body: `{"error":"eoa parameter is required"}`, wantFailed: true},
		{name: "wrong message", contentType: contentTypeAppJSON, code: 400, body: `{"error":"other"}`, wantFailed: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set("Content-Type", tt.contentType)
			rec.WriteHeader(tt.code)
			_, _ = rec.Write([]byte(tt.body))

			mockT := &MockT{}
			RequireErrorInRecorder(mockT, rec, 400, "eoa parameter is required")
			require.Equal(t, tt.wantFailed, mockT.Failed)
		})
	}
}

func TestRequireSamplesCountInHistogram(t *testing.T) {
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "events", Buckets: []float64{1, 10, 50}})
	hist.Observe(42)

	mockT := &MockT{}
	RequireSamplesCountInHistogram(mockT, hist, 0)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireSamplesCountInHistogram(mockT, hist, 1)
	require.False(t, mockT.Failed)
}
