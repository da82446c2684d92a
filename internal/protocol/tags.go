package protocol

import "math/bits"

// TagCount is the size of the tag domain. A tag set packs into a uint64.
const TagCount = 64

// TagID is one slot of the fixed tag domain, in [0, TagCount).
type TagID uint8

// Valid reports whether the tag lies inside the domain.
func (t TagID) Valid() bool {
	return t < TagCount
}

// Mask returns the single-bit mask for the tag, or 0 if the tag is invalid.
func (t TagID) Mask() uint64 {
	if !t.Valid() {
		return 0
	}
	return 1 << t
}

// AllTags returns every tag in the domain, ascending.
func AllTags() []TagID {
	tags := make([]TagID, TagCount)
	for i := range tags {
		tags[i] = TagID(i)
	}
	return tags
}

// Pack folds a tag set into a bitmask. Invalid tags are ignored.
func Pack(tags []TagID) uint64 {
	var mask uint64
	for _, t := range tags {
		mask |= t.Mask()
	}
	return mask
}

// Unpack expands a bitmask into its tags, ascending.
func Unpack(mask uint64) []TagID {
	tags := make([]TagID, 0, bits.OnesCount64(mask))
	for mask != 0 {
		i := bits.TrailingZeros64(mask)
		tags = append(tags, TagID(i))
		mask &^= 1 << i
	}
	return tags
}
