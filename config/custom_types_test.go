/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestByteSize(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    ByteSize
		wantErr bool
	}{
		{name: "integer", json: `1024`, want: 1024},
		{name: "human readable", json: `"1M"`, want: 1024 * 1024},
		{name: "k8s suffix", json: `"64Ki"`, want: 64 * 1024},
		{name: "negative", json: `-1`, wantErr: true},
		{name: "garbage", json: `"lots"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b ByteSize
			err := json.Unmarshal([]byte(tt.json), &b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, b)
		})
	}

	var fromYAML struct {
		Limit ByteSize `yaml:"limit"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("limit: 2K"), &fromYAML))
	require.Equal(t, ByteSize(2048), fromYAML.Limit)

	out, err := json.Marshal(ByteSize(1024))
	require.NoError(t, err)
	require.Equal(t, `"1K"`, string(out))
}
