package color

import "strconv"

// A Tagger wraps a chunk of output from stream i as
//
//	<color>[i] <chunk><reset>
//
// The zero Tagger colors by index.
type Tagger struct {
	// Stderr tags every stream with the Error color.
	Stderr bool

	// Plain omits escape sequences entirely, leaving only "[i] ".
	Plain bool
}

// Tag returns a new slice holding the tagged chunk. It does not retain
// chunk.
func (t Tagger) Tag(i int, chunk []byte) []byte {
	var start, end string
	if !t.Plain {
		start, end = ForIndex(i), Reset
		if t.Stderr {
			start = Error
		}
	}

	out := make([]byte, 0, len(start)+len(end)+len(chunk)+8)
	out = append(out, start...)
	out = append(out, '[')
	out = strconv.AppendInt(out, int64(i), 10)
	out = append(out, ']', ' ')
	out = append(out, chunk...)
	out = append(out, end...)
	return out
}
