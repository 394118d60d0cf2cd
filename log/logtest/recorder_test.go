/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/log"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.With(log.String("component", "dispatcher")).Info("request dispatched", log.Int("queue_len", 2))
	rec.WithLevel(log.LevelWarn).Info("dropped")
	rec.Errorf("upstream failed with %d", 503)

	require.Len(t, rec.Entries(), 2)

	entry, found := rec.FindEntry("request dispatched")
	require.True(t, found)
	require.Equal(t, log.LevelInfo, entry.Level)
	require.Equal(t, "dispatcher", entry.StringField("component"))
	_, found = entry.FindField("queue_len")
	require.True(t, found)

	entry, found = rec.FindEntryContaining("503")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)

	rec.Reset()
	require.Empty(t, rec.Entries())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf).Info("hello", log.String("route", "/api/markets"))
	require.Contains(t, buf.String(), `"hello"`)
	require.Contains(t, buf.String(), `"route":"/api/markets"`)
}
