package key

import (
	"crypto/rand"
	"io"
)

// Random returns a key populated with data read from r. A nil r reads from crypto/rand.
func Random(r io.Reader) Key {
	if r == nil {
		r = rand.Reader
	}
	var k Key
	if _, err := io.ReadFull(r, k[:]); err != nil {
		panic("key: failed to read enough entropy for key")
	}
	return k
}

// RandomWithPrefix returns a random key whose first n bits are equal to the first n bits of
// prefix. The remaining bits are uniformly distributed, so the result is a uniform draw from
// the range of keys sharing that prefix.
func RandomWithPrefix(r io.Reader, prefix Key, n int) Key {
	if n < 0 || n > prefix.BitLen() {
		panic("key: prefix length out of range")
	}
	k := Random(r)
	full := n / 8
	copy(k[:full], prefix[:full])
	if rem := n % 8; rem != 0 {
		mask := byte(0xff) << (8 - uint(rem))
		k[full] = prefix[full]&mask | k[full]&^mask
	}
	return k
}

// PrefixRange returns the smallest and the largest key sharing the first n bits of prefix.
func PrefixRange(prefix Key, n int) (lo, hi Key) {
	for i := 0; i < prefix.BitLen(); i++ {
		var b uint
		if i < n {
			b = prefix.Bit(i)
			lo = lo.setBit(i, b)
			hi = hi.setBit(i, b)
			continue
		}
		hi = hi.setBit(i, 1)
	}
	return lo, hi
}

// FlipBit returns a copy of k with the i'th most significant bit inverted.
func (k Key) FlipBit(i int) Key {
	return k.setBit(i, k.Bit(i)^1)
}

func (k Key) setBit(i int, v uint) Key {
	mask := byte(1) << (7 - uint(i%8))
	if v == 0 {
		k[i/8] &^= mask
	} else {
		k[i/8] |= mask
	}
	return k
}
