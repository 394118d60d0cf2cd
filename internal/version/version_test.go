/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package version

import (
	"runtime/debug"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMainModuleVersion(t *testing.T) {
	tests := []struct {
		name string
		bi   *debug.BuildInfo
		want string
	}{
		{name: "tagged", bi: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, want: "v1.2.3"},
		{name: "devel", bi: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, want: ""},
		{name: "nil", bi: nil, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, mainModuleVersion(tt.bi))
		})
	}
}

func TestUserAgent(t *testing.T) {
	require.Regexp(t, `^predictdash/\S+$`, UserAgent())
}

func TestBuildInfoCollector(t *testing.T) {
	require.Equal(t, float64(1), testutil.ToFloat64(NewBuildInfoCollector()))
}
