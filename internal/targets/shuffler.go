package targets

import (
	"crypto/rand"
	"encoding/binary"
)

const feistelRounds = 6

// permutation is a keyed bijection on [0, size) built from a balanced Feistel
// network. Indices outside the domain are cycle-walked back into it.
type permutation struct {
	keys      [feistelRounds]uint64
	size      uint32
	halfWidth uint
	lowerMask uint32
}

func newPermutation(size int) *permutation {
	// Smallest even bit-width that covers size.
	bits := uint(2)
	for (1 << bits) < size {
		bits++
	}
	if bits%2 != 0 {
		bits++
	}

	p := &permutation{
		size:      uint32(size),
		halfWidth: bits / 2,
		lowerMask: uint32(1)<<(bits/2) - 1,
	}
	var b [feistelRounds * 8]byte
	_, _ = rand.Read(b[:])
	for i := range p.keys {
		p.keys[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return p
}

func (p *permutation) at(index uint32) uint32 {
	x := index
	for {
		x = p.encrypt(x)
		if x < p.size {
			return x
		}
	}
}

func (p *permutation) encrypt(block uint32) uint32 {
	left := (block >> p.halfWidth) & p.lowerMask
	right := block & p.lowerMask
	for _, key := range p.keys {
		left, right = right, left^(uint32(mix(uint64(right)^key))&p.lowerMask)
	}
	return left<<p.halfWidth | right
}

// mix is the murmur3 64-bit finalizer.
func mix(v uint64) uint64 {
	v ^= v >> 33
	v *= 0xff51afd7ed558ccd
	v ^= v >> 33
	v *= 0xc4ceb9fe1a85ec53
	v ^= v >> 33
	return v
}

// Shuffled returns the ports of s in a random order. Every port appears once.
func (s PortSet) Shuffled() []uint16 {
	out := make([]uint16, len(s.ports))
	if len(out) == 0 {
		return out
	}
	perm := newPermutation(len(s.ports))
	for i := range out {
		out[i] = s.ports[perm.at(uint32(i))]
	}
	return out
}
