package kadtest

import (
	"math/rand"
	"strconv"

	"github.com/Rendaw/kademlia/key"
)

var rng = rand.New(rand.NewSource(299792458))

// RandomKey returns a pseudo random key from a fixed seed.
func RandomKey() key.Key {
	return key.Random(rng)
}

// RandomKeyWithPrefix returns a pseudo random key whose leading bits are the bit pattern
// held in s.
func RandomKeyWithPrefix(s string) key.Key {
	var prefix key.Key
	for i, c := range s {
		b, err := strconv.ParseUint(string(c), 2, 1)
		if err != nil {
			panic("RandomKeyWithPrefix: " + err.Error())
		}
		if b == 1 {
			prefix = prefix.FlipBit(i)
		}
	}
	return key.RandomWithPrefix(rng, prefix, len(s))
}
