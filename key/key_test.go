package key

import (
	"crypto/sha1"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func zeroBytes(n int) []byte {
	return make([]byte, n)
}

func withLead(b byte) Key {
	return MustFromBytes(append([]byte{b}, zeroBytes(Size-1)...))
}

var (
	key0 = MustFromBytes(zeroBytes(Size))                  // 00000...000
	key1 = MustFromBytes(append(zeroBytes(Size-1), 0x01)) // 00000...001
	key2 = withLead(0x80)                                  // 10000...000
	key3 = withLead(0x40)                                  // 01000...000
)

func TestKeyString(t *testing.T) {
	require.Equal(t, strings.Repeat("00", Size), key0.HexString())

	ff := make([]byte, Size)
	for i := range ff {
		ff[i] = 0xff
	}
	require.Equal(t, strings.Repeat("ff", Size), MustFromBytes(ff).HexString())
	require.Equal(t, "ffffffffffff~", MustFromBytes(ff).String())

	require.Equal(t, "1"+strings.Repeat("0", Size*8-1), key2.BitString())
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes([]byte{0x23, 0xe4, 0xdd})
	require.Equal(t, ErrInvalidKey(Size), err)

	k, err := FromHex(strings.Repeat("ab", Size))
	require.NoError(t, err)
	require.Equal(t, byte(0xab), k[Size-1])
}

func TestXor(t *testing.T) {
	randKey := Random(rand.New(rand.NewSource(1)))

	require.Equal(t, key0, key0.Xor(key0))
	require.Equal(t, randKey, randKey.Xor(key0))
	require.Equal(t, randKey, key0.Xor(randKey))
	require.Equal(t, key0, randKey.Xor(randKey))
}

func TestDistanceMetric(t *testing.T) {
	rng := rand.New(rand.NewSource(299792458))
	for i := 0; i < 50; i++ {
		a, b := Random(rng), Random(rng)

		// symmetric
		require.Equal(t, a.Xor(b), b.Xor(a))
		// identity
		require.True(t, a.Xor(a).IsZero())
		// zero iff equal
		require.Equal(t, a == b, a.Xor(b).IsZero())
	}
}

func TestCommonPrefixLength(t *testing.T) {
	require.Equal(t, Size*8, key0.CommonPrefixLength(key0))
	require.Equal(t, Size*8-1, key0.CommonPrefixLength(key1))
	require.Equal(t, 0, key0.CommonPrefixLength(key2))
	require.Equal(t, 1, key0.CommonPrefixLength(key3))
}

func TestCompare(t *testing.T) {
	// ascending order
	keys := []Key{
		key0,
		key1,
		MustFromBytes(append(zeroBytes(Size-1), 0x02)),
		key3,
		key2,
	}

	for i := range keys {
		for j := range keys {
			res := keys[i].Compare(keys[j])
			switch {
			case i < j:
				require.Equal(t, -1, res)
			case i > j:
				require.Equal(t, 1, res)
			default:
				require.Equal(t, 0, res)
				require.True(t, keys[i].Equal(keys[j]))
			}
		}
	}
}

func TestCloser(t *testing.T) {
	require.True(t, Closer(key0, key1, key2))
	require.False(t, Closer(key0, key2, key1))
	require.False(t, Closer(key0, key1, key1))
}

func TestDigest(t *testing.T) {
	want := sha1.Sum([]byte("k1"))
	require.Equal(t, Key(want), Digest([]byte("k1")))
	require.NotEqual(t, Digest([]byte("k1")), Digest([]byte("k2")))
}

func TestRandomWithPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prefix := withLead(0b10110000)

	for n := 0; n <= 12; n++ {
		for i := 0; i < 20; i++ {
			k := RandomWithPrefix(rng, prefix, n)
			require.GreaterOrEqual(t, k.CommonPrefixLength(prefix), n)

			lo, hi := PrefixRange(prefix, n)
			require.LessOrEqual(t, lo.Compare(k), 0)
			require.GreaterOrEqual(t, hi.Compare(k), 0)
		}
	}
}

func TestPrefixRange(t *testing.T) {
	lo, hi := PrefixRange(key2, 1)
	require.Equal(t, key2, lo)
	require.Equal(t, byte(0xff), hi[0])
	require.Equal(t, byte(0xff), hi[Size-1])

	lo, hi = PrefixRange(key2, 0)
	require.True(t, lo.IsZero())
	require.Equal(t, byte(0xff), hi[0])

	require.Equal(t, key0, key2.FlipBit(0))
	require.Equal(t, key3, key0.FlipBit(1))
}
