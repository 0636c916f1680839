package key

import (
	mh "github.com/multiformats/go-multihash"
	mhreg "github.com/multiformats/go-multihash/core"
)

// HasherID identifies the hash function that maps node pre-ids and storage keys into the
// key space. Its digest length must equal Size.
const HasherID = mh.SHA1

// Digest returns the key derived from data. It is used both for node ids (the digest of a
// node's public key) and for placing stored values in the key space.
func Digest(data []byte) Key {
	hasher, err := mhreg.GetHasher(HasherID)
	if err != nil {
		// sha1 is always registered by the multihash core
		panic(err)
	}
	hasher.Write(data)
	return MustFromBytes(hasher.Sum(nil))
}
