// Package key defines the 160-bit identifiers used for nodes and stored values, and the XOR
// metric over them.
package key

import (
	"bytes"
	"encoding/hex"
	"math/bits"
	"strings"
)

// Size is the length of a Key in bytes.
const Size = 20

// Key is a 160-bit Kademlia key. The zero value is the all-zero key.
//
// The XOR of two keys is their distance. Distances are themselves keys and are compared
// numerically with Compare, so "a is closer to t than b" is t.Xor(a).Compare(t.Xor(b)) < 0.
type Key [Size]byte

// FromBytes returns the key held in b, which must be exactly Size bytes long.
func FromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != Size {
		return k, ErrInvalidKey(Size)
	}
	copy(k[:], b)
	return k, nil
}

// MustFromBytes is like FromBytes but panics if b has the wrong length.
func MustFromBytes(b []byte) Key {
	k, err := FromBytes(b)
	if err != nil {
		panic(err)
	}
	return k
}

// FromHex parses a hex encoded key.
func FromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return FromBytes(b)
}

// BitLen returns the length of the key in bits.
func (k Key) BitLen() int {
	return Size * 8
}

// Bit returns the value of the i'th bit of the key from most significant to least.
// Bit panics if i is out of the range [0,BitLen()-1].
func (k Key) Bit(i int) uint {
	if i < 0 || i >= k.BitLen() {
		panic("key: bit index out of range")
	}
	return uint(k[i/8]>>(7-uint(i%8))) & 1
}

// Xor returns the bitwise XOR of k and o, i.e. the distance between them.
func (k Key) Xor(o Key) Key {
	var x Key
	for i := range k {
		x[i] = k[i] ^ o[i]
	}
	return x
}

// CommonPrefixLength returns the number of leading bits k shares with o.
// The CommonPrefixLength of a key with itself is BitLen.
func (k Key) CommonPrefixLength(o Key) int {
	for i := range k {
		if x := k[i] ^ o[i]; x != 0 {
			return i*8 + bits.LeadingZeros8(x)
		}
	}
	return k.BitLen()
}

// Compare compares the numeric values of k and o. It returns -1 if k < o, +1 if k > o and
// 0 if both are equal.
func (k Key) Compare(o Key) int {
	return bytes.Compare(k[:], o[:])
}

// Equal reports whether both keys hold the same value.
func (k Key) Equal(o Key) bool {
	return k == o
}

// IsZero reports whether k is the all-zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Bytes returns a copy of the key's bytes.
func (k Key) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, k[:])
	return b
}

// HexString returns the hexadecimal representation of the key.
func (k Key) HexString() string {
	return hex.EncodeToString(k[:])
}

// BitString returns the binary representation of the key.
func (k Key) BitString() string {
	b := new(strings.Builder)
	b.Grow(k.BitLen())
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// String returns an abbreviated hex form, enough to tell nodes apart in logs.
func (k Key) String() string {
	return k.HexString()[:12] + "~"
}

// Closer reports whether a is strictly closer to target than b.
func Closer(target, a, b Key) bool {
	return target.Xor(a).Compare(target.Xor(b)) < 0
}
