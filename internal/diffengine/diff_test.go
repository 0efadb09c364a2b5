// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package diffengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/capability/fake"
)

func TestDiff_TableAbsent(t *testing.T) {
	nft := fake.NewNft()

	result, err := Diff(context.Background(), nft, "gw-missing", []byte(`{"nftables":[{"table":{"family":"inet","name":"gw-missing"}}]}`))
	require.NoError(t, err)

	assert.False(t, result.Matches)
	assert.False(t, result.CurrentExists)
	assert.NotEmpty(t, result.DiffText)
}

func TestDiff_MatchesIgnoresWhitespace(t *testing.T) {
	nft := fake.NewNft()
	nft.Preload("gw-ok", []byte(`{"nftables":  [  {"table":{"family":"inet","name":"gw-ok"}}  ] }`))

	result, err := Diff(context.Background(), nft, "gw-ok", []byte(`{"nftables":[{"table":{"family":"inet","name":"gw-ok"}}]}`))
	require.NoError(t, err)

	assert.True(t, result.Matches)
	assert.True(t, result.CurrentExists)
	assert.Empty(t, result.DiffText)
}

func TestDiff_DriftProducesUnifiedDiff(t *testing.T) {
	nft := fake.NewNft()
	nft.Preload("gw-drift", []byte(`{"nftables":[{"table":{"family":"inet","name":"gw-drift"}},{"chain":{"family":"inet","table":"gw-drift","name":"input","type":"filter","hook":"input","prio":0,"policy":"accept"}}]}`))

	desired := []byte(`{"nftables":[{"table":{"family":"inet","name":"gw-drift"}},{"chain":{"family":"inet","table":"gw-drift","name":"input","type":"filter","hook":"input","prio":0,"policy":"drop"}}]}`)

	result, err := Diff(context.Background(), nft, "gw-drift", desired)
	require.NoError(t, err)

	assert.False(t, result.Matches)
	assert.True(t, result.CurrentExists)
	assert.Contains(t, result.DiffText, "gw-drift")
}
