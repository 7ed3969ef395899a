package salt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		secretKey string
		index     int64
		want      string
	}{
		{
			name:      "known vector",
			secretKey: "k1",
			index:     3,
			want:      "0x02ab693ac9c96d076ac120cc96a92c40e087e44689a1d8d89214c52d8dc1bf36bab8f306ffe7af17b55318839f0aef17aac4d2833d21e4ad837d9572dd30bd58",
		},
		{
			name:      "index zero",
			secretKey: "top-secret",
			index:     0,
			want:      "0xa58be161e4694ca6747f974f732c00f956c617571083a404daa9204826a4cdcdc9e370d93062cb07098fc694de23cd28bfcf73efbd192cdfb2ea1460c3dcb0e8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.secretKey, tt.index))
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	first := Compute("app-secret", 42)
	second := Compute("app-secret", 42)
	assert.Equal(t, first, second)

	// Different index or key must move the salt.
	assert.NotEqual(t, first, Compute("app-secret", 43))
	assert.NotEqual(t, first, Compute("other-secret", 42))
}
