// Package packed stores a fixed number of small values in a slice of
// unsigned machine words. Every slot has the same width, the smallest
// number of bits that can hold all of the store's states. Slots never
// straddle two backing words, so reading or writing one slot can never
// disturb its neighbours.
package packed

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxKeyWords is the number of 64-bit words in an encoded Key. A store
// whose backing words do not fit in MaxKeyWords*64 bits cannot be created.
const MaxKeyWords = 8

// MaxStates is the largest alphabet a store can hold; values are uint8.
const MaxStates = 256

// Key is the encoded form of a store. It is comparable, so it can be used
// directly as a map key, and it is cheap to copy.
type Key [MaxKeyWords]uint64

// Word is the set of types a store can use as its backing word.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

var (
	ErrBadShape        = errors.New("invalid packed store shape")
	ErrTooLarge        = errors.New("packed store does not fit in an encoded key")
	ErrIndexOutOfRange = errors.New("slot index out of range")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrCorruptKey      = errors.New("encoded key has bits outside the store")
)

// Store is a fixed-size sequence of slots packed into words of type W.
type Store[W Word] struct {
	words []W

	size     int
	states   int
	width    uint // bits per slot
	perWord  int  // slots per backing word
	wordBits uint
	mask     W
}

// WordBits returns the bit width of W.
func WordBits[W Word]() uint {
	var w W
	return uint(bits.OnesCount64(uint64(^w)))
}

// SlotBits returns ceil(log2(states)), the width of a slot able to hold
// the values 0..states-1.
func SlotBits(states int) uint {
	return uint(bits.Len(uint(states - 1)))
}

// New creates a zeroed store holding size slots of values in [0, states).
func New[W Word](size, states int) (*Store[W], error) {
	if size < 1 || states < 2 || states > MaxStates {
		return nil, fmt.Errorf("%w: size %d, states %d", ErrBadShape, size, states)
	}
	wb := WordBits[W]()
	width := SlotBits(states)
	perWord := int(wb / width)
	nwords := (size + perWord - 1) / perWord
	if uint(nwords)*wb > MaxKeyWords*64 {
		return nil, fmt.Errorf("%w: %d slots of %d bits need %d %d-bit words",
			ErrTooLarge, size, width, nwords, wb)
	}
	return &Store[W]{
		words:    make([]W, nwords),
		size:     size,
		states:   states,
		width:    width,
		perWord:  perWord,
		wordBits: wb,
		mask:     W(1)<<width - 1,
	}, nil
}

// DecodeStore builds a new store of the given shape from an encoded key.
func DecodeStore[W Word](size, states int, k Key) (*Store[W], error) {
	s, err := New[W](size, states)
	if err != nil {
		return nil, err
	}
	if err := s.Decode(k); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[W]) Len() int       { return s.size }
func (s *Store[W]) States() int    { return s.states }
func (s *Store[W]) SlotBits() uint { return s.width }
func (s *Store[W]) NumWords() int  { return len(s.words) }

func (s *Store[W]) locate(i int) (int, uint) {
	return i / s.perWord, uint(i%s.perWord) * s.width
}

// Get returns the value in slot i. The index is not checked beyond the
// bounds of the backing slice; callers own the range of i.
func (s *Store[W]) Get(i int) uint8 {
	w, shift := s.locate(i)
	return uint8((s.words[w] >> shift) & s.mask)
}

// Set writes v into slot i.
func (s *Store[W]) Set(i int, v uint8) error {
	if i < 0 || i >= s.size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, s.size)
	}
	if int(v) >= s.states {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrValueOutOfRange, v, s.states)
	}
	w, shift := s.locate(i)
	s.words[w] = s.words[w]&^(s.mask<<shift) | W(v)<<shift
	return nil
}

// Fill writes v into every slot.
func (s *Store[W]) Fill(v uint8) error {
	if int(v) >= s.states {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrValueOutOfRange, v, s.states)
	}
	if v == 0 {
		clear(s.words)
		return nil
	}
	for i := 0; i < s.size; i++ {
		w, shift := s.locate(i)
		s.words[w] = s.words[w]&^(s.mask<<shift) | W(v)<<shift
	}
	return nil
}

// Encode copies the backing words, bit for bit, into a Key.
func (s *Store[W]) Encode() Key {
	var k Key
	perKey := 64 / s.wordBits
	for i, w := range s.words {
		k[uint(i)/perKey] |= uint64(w) << ((uint(i) % perKey) * s.wordBits)
	}
	return k
}

// Decode overwrites the store with the contents of k. It is the exact
// inverse of Encode. The store is left untouched if k holds a value that
// is out of range or has bits set outside the store's slots.
func (s *Store[W]) Decode(k Key) error {
	perKey := 64 / s.wordBits
	words := make([]W, len(s.words))
	for i := range words {
		words[i] = W(k[uint(i)/perKey] >> ((uint(i) % perKey) * s.wordBits))
	}
	tmp := *s
	tmp.words = words
	for i := 0; i < s.size; i++ {
		if int(tmp.Get(i)) >= s.states {
			return fmt.Errorf("%w: slot %d holds %d", ErrValueOutOfRange, i, tmp.Get(i))
		}
	}
	if tmp.Encode() != k {
		return ErrCorruptKey
	}
	// Slots past size in the last word must be empty too.
	for i := s.size; i < len(words)*s.perWord; i++ {
		if tmp.Get(i) != 0 {
			return ErrCorruptKey
		}
	}
	// And so must the bits above the last slot of every word.
	used := uint(s.perWord) * s.width
	if used < s.wordBits {
		for _, w := range words {
			if w>>used != 0 {
				return ErrCorruptKey
			}
		}
	}
	copy(s.words, words)
	return nil
}

// Clone returns an independent copy of the store.
func (s *Store[W]) Clone() *Store[W] {
	c := *s
	c.words = make([]W, len(s.words))
	copy(c.words, s.words)
	return &c
}

// CopyFrom overwrites s with the contents of o. Both stores must have the
// same shape.
func (s *Store[W]) CopyFrom(o *Store[W]) {
	if s.size != o.size || s.states != o.states {
		panic(fmt.Sprintf("packed: copying a %dx%d store into a %dx%d store",
			o.size, o.states, s.size, s.states))
	}
	copy(s.words, o.words)
}

// Equal reports whether both stores have the same shape and contents.
func (s *Store[W]) Equal(o *Store[W]) bool {
	if s.size != o.size || s.states != o.states {
		return false
	}
	for i := range s.words {
		if s.words[i] != o.words[i] {
			return false
		}
	}
	return true
}
