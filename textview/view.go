// Package textview wraps a single line of text and translates offsets between
// the UTF-8 byte positions used by the pattern engine, the rune positions the
// regex runtime works in, and the UTF-16 code units callers index by.
package textview

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"
)

// ErrOffsetOutOfRange is matched by every *OffsetRangeError.
var ErrOffsetOutOfRange = errors.New("offset out of range")

// OffsetRangeError reports an offset outside [0, length] for a unit.
type OffsetRangeError struct {
	Unit   string
	Offset int
	Length int
}

func (e *OffsetRangeError) Error() string {
	return fmt.Sprintf("%s offset %d out of range [0, %d]", e.Unit, e.Offset, e.Length)
}

func (e *OffsetRangeError) Unwrap() error {
	return ErrOffsetOutOfRange
}

var nextID atomic.Uint64

// View holds one line of text plus a lazily built offset index.
//
// A View is not safe for concurrent use; it lives for one tokenize call.
// Offsets that land inside a code point round down to the start of that
// code point in every conversion.
type View struct {
	id      uint64
	content string

	indexed bool
	runes   []rune
	// Indexed by byte offset, len(content)+1 entries.
	byteToRune  []int
	byteToUTF16 []int
	// Indexed by rune offset, len(runes)+1 entries.
	runeToByte []int
	// Indexed by UTF-16 offset, utf16Len+1 entries.
	utf16ToByte []int
	utf16Len    int
}

// New wraps text. Each View gets a process-unique ID.
func New(text string) *View {
	return &View{
		id:      nextID.Add(1),
		content: text,
	}
}

// ID identifies this view; search memos are keyed by it.
func (v *View) ID() uint64 {
	return v.id
}

// String returns the wrapped text.
func (v *View) String() string {
	return v.content
}

// ByteLength returns the UTF-8 length of the text.
func (v *View) ByteLength() int {
	return len(v.content)
}

// UTF16Length returns the number of UTF-16 code units of the text.
func (v *View) UTF16Length() int {
	v.ensureIndex()
	return v.utf16Len
}

// RuneLength returns the number of code points of the text.
func (v *View) RuneLength() int {
	v.ensureIndex()
	return len(v.runes)
}

// Runes returns the decoded code points. Invalid bytes decode to
// utf8.RuneError one byte at a time. The slice must not be modified.
func (v *View) Runes() []rune {
	v.ensureIndex()
	return v.runes
}

// UTF16ToUTF8 converts a UTF-16 offset to a byte offset.
func (v *View) UTF16ToUTF8(off int) (int, error) {
	v.ensureIndex()
	if off < 0 || off > v.utf16Len {
		return 0, &OffsetRangeError{Unit: "utf16", Offset: off, Length: v.utf16Len}
	}
	return v.utf16ToByte[off], nil
}

// UTF8ToUTF16 converts a byte offset to a UTF-16 offset.
func (v *View) UTF8ToUTF16(off int) (int, error) {
	v.ensureIndex()
	if off < 0 || off > len(v.content) {
		return 0, &OffsetRangeError{Unit: "utf8", Offset: off, Length: len(v.content)}
	}
	return v.byteToUTF16[off], nil
}

// UTF8ToRune converts a byte offset to a rune offset.
func (v *View) UTF8ToRune(off int) (int, error) {
	v.ensureIndex()
	if off < 0 || off > len(v.content) {
		return 0, &OffsetRangeError{Unit: "utf8", Offset: off, Length: len(v.content)}
	}
	return v.byteToRune[off], nil
}

// RuneToUTF8 converts a rune offset to a byte offset.
func (v *View) RuneToUTF8(off int) (int, error) {
	v.ensureIndex()
	if off < 0 || off > len(v.runes) {
		return 0, &OffsetRangeError{Unit: "rune", Offset: off, Length: len(v.runes)}
	}
	return v.runeToByte[off], nil
}

// NextBoundary returns the byte offset of the code point following the one
// that contains off. At or past the end it returns ByteLength.
func (v *View) NextBoundary(off int) int {
	if off < 0 {
		return 0
	}
	if off >= len(v.content) {
		return len(v.content)
	}
	v.ensureIndex()
	return v.runeToByte[v.byteToRune[off]+1]
}

func (v *View) ensureIndex() {
	if v.indexed {
		return
	}
	v.indexed = true

	s := v.content
	n := len(s)
	v.runes = make([]rune, 0, utf8.RuneCountInString(s))
	v.byteToRune = make([]int, n+1)
	v.byteToUTF16 = make([]int, n+1)
	v.runeToByte = make([]int, 0, cap(v.runes)+1)
	v.utf16ToByte = make([]int, 0, n+1)

	u16 := 0
	for i := 0; i < n; {
		r, size := utf8.DecodeRuneInString(s[i:])
		ri := len(v.runes)
		v.runes = append(v.runes, r)
		v.runeToByte = append(v.runeToByte, i)
		for k := 0; k < size; k++ {
			v.byteToRune[i+k] = ri
			v.byteToUTF16[i+k] = u16
		}
		units := 1
		if r >= 0x10000 {
			units = 2
		}
		for k := 0; k < units; k++ {
			v.utf16ToByte = append(v.utf16ToByte, i)
		}
		u16 += units
		i += size
	}
	v.byteToRune[n] = len(v.runes)
	v.byteToUTF16[n] = u16
	v.runeToByte = append(v.runeToByte, n)
	v.utf16ToByte = append(v.utf16ToByte, n)
	v.utf16Len = u16
}
