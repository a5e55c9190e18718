package store

import (
	"strconv"
	"strings"
)

// Key is a logical resource identity, e.g. Key{"news", "42"}.
type Key []string

// Disabled is the no-op key. Reading it never fetches.
var Disabled Key

// Of builds a key and returns Disabled when any part is empty, so a by-id
// read is not issued before its id is known.
func Of(parts ...string) Key {
	if len(parts) == 0 {
		return Disabled
	}
	for _, p := range parts {
		if p == "" {
			return Disabled
		}
	}
	k := make(Key, len(parts))
	copy(k, parts)
	return k
}

// Enabled reports whether the key names a resource.
func (k Key) Enabled() bool {
	return len(k) > 0
}

// Resource is the collection name, the first element of the key.
func (k Key) Resource() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether p is an element-wise prefix of k.
// Key{"news","1"} has prefix Key{"news"}; Key{"news-letter"} does not.
func (k Key) HasPrefix(p Key) bool {
	if len(p) == 0 || len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// Equal reports element-wise equality.
func (k Key) Equal(o Key) bool {
	return len(k) == len(o) && k.HasPrefix(o)
}

func (k Key) String() string {
	return "[" + strings.Join(k, ",") + "]"
}

// id is the map and singleflight identity of the key. Parts are length
// prefixed so no two distinct keys share an id.
func (k Key) id() string {
	var b strings.Builder
	for _, p := range k {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
