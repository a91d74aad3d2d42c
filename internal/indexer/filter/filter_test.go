package filter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("token%04d", i)
	}
	return out
}

func TestBuildHasNoFalseNegatives(t *testing.T) {
	for _, kind := range []Kind{KindCuckoo, KindBloom} {
		t.Run(kind.String(), func(t *testing.T) {
			b := NewBuilder(tokenizer.NewUnicode(), Options{Kind: kind})
			f, err := b.Build("Installation", "Run cargo install to get the CLI.", "Rust Guide", "Getting Started")
			require.NoError(t, err)
			assert.Equal(t, kind, f.Kind())

			for _, token := range []string{"installation", "run", "cargo", "install", "cli", "rust", "guide", "getting", "started"} {
				assert.True(t, f.Contains(token), token)
			}
		})
	}
}

func TestMarshalRoundTripKeepsMembers(t *testing.T) {
	tokens := words(300)
	for _, kind := range []Kind{KindCuckoo, KindBloom} {
		t.Run(kind.String(), func(t *testing.T) {
			b := NewBuilder(tokenizer.NewUnicode(), Options{Kind: kind})
			f, err := b.FromTokens(tokens)
			require.NoError(t, err)

			data, err := f.MarshalBinary()
			require.NoError(t, err)
			restored, err := Unmarshal(kind, data)
			require.NoError(t, err)

			for _, token := range tokens {
				require.True(t, restored.Contains(token), token)
			}
		})
	}
}

func TestFalsePositiveRateIsBounded(t *testing.T) {
	b := NewBuilder(tokenizer.NewUnicode(), Options{Kind: KindCuckoo})
	f, err := b.FromTokens(words(200))
	require.NoError(t, err)

	hits := 0
	const probes = 5000
	for i := range probes {
		if f.Contains(fmt.Sprintf("absent-%d", i)) {
			hits++
		}
	}
	assert.Less(t, float64(hits)/probes, 0.05)
}

func TestEmptySectionStillBuilds(t *testing.T) {
	b := NewBuilder(tokenizer.NewUnicode(), Options{})
	f, err := b.Build("", "")
	require.NoError(t, err)
	assert.False(t, f.Contains("anything"))
}

func TestCuckooOverflowReturnsAddError(t *testing.T) {
	_, err := newCuckoo(words(200), 8)

	var addErr *AddError
	require.True(t, errors.As(err, &addErr))
	assert.NotEmpty(t, addErr.Token)
	assert.Equal(t, uint(8), addErr.Capacity)
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	_, err := Unmarshal(KindCuckoo, []byte{1, 2, 3})
	assert.Error(t, err)

	// 3 buckets is not a power of two
	_, err = Unmarshal(KindCuckoo, make([]byte, 12))
	assert.Error(t, err)

	_, err = Unmarshal(KindBloom, []byte{0xff})
	assert.Error(t, err)

	_, err = Unmarshal(Kind(9), []byte{0})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Bloom")
	require.NoError(t, err)
	assert.Equal(t, KindBloom, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindCuckoo, k)

	_, err = ParseKind("xor")
	assert.Error(t, err)
}
