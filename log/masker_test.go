/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_Mask(t *testing.T) {
	masker := NewMasker(DefaultMasks, "dome-secret-key")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "http header",
			in:   "request headers: Authorization: Bearer abc.def\r\nAccept: */*",
			want: "request headers: Authorization: ***\r\nAccept: */*",
		},
		{
			name: "json",
			in:   `{"Authorization":"Bearer abc","Content-Type":"application/json"}`,
			want: `{"Authorization":"***","Content-Type":"application/json"}`,
		},
		{
			name: "url encoded",
			in:   "GET /v1/polymarket/markets?limit=10&api_key=abc123&closed=false",
			want: "GET /v1/polymarket/markets?limit=10&api_key=***&closed=false",
		},
		{
			name: "literal secret",
			in:   `Get "https://api.domeapi.io/v1/wallet?token=dome-secret-key": dial tcp: timeout`,
			want: `Get "https://api.domeapi.io/v1/wallet?token=***": dial tcp: timeout`,
		},
		{
			name: "nothing to mask",
			in:   "fetched 10 markets",
			want: "fetched 10 markets",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.in))
		})
	}
}

type recordingLogger struct {
	FieldLogger
	texts  []string
	fields [][]Field
}

func (l *recordingLogger) Info(text string, fs ...Field) {
	l.texts = append(l.texts, text)
	l.fields = append(l.fields, fs)
}

func TestMaskingLogger(t *testing.T) {
	rec := &recordingLogger{FieldLogger: NewDisabledLogger()}
	logger := NewMaskingLogger(rec, NewMasker(nil, "s3cr3t"))

	logger.Info("key s3cr3t loaded",
		String("header", "Bearer s3cr3t"), Error(errors.New("dial https://x?k=s3cr3t")), Int("n", 1))

	require.Equal(t, []string{"key *** loaded"}, rec.texts)
	require.Len(t, rec.fields[0], 3)
	require.Equal(t, "Bearer ***", string(rec.fields[0][0].Bytes))
	require.EqualError(t, rec.fields[0][1].Any.(error), "dial https://x?k=***")
	require.Equal(t, int64(1), rec.fields[0][2].Int)
}
