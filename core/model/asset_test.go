package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetKindRoundTrip(t *testing.T) {
	for _, k := range []AssetKind{KindGenerator, KindStorage, KindPassive} {
		got, ok := ParseAssetKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseAssetKind("nuclear fusion")
	assert.False(t, ok)
	assert.Equal(t, "unknown", AssetKind(9).String())
}
