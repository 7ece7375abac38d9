package sim

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/san-kum/grapple/internal/world"
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 8*11)
		return &b
	},
}

// Digest hashes every live entity and its local transform in entity order.
// Two runs that took the same decisions produce the same digest.
func Digest(w *world.World) uint64 {
	h := xxhash.New()
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)

	for _, e := range w.Entities() {
		buf := binary.LittleEndian.AppendUint64((*bp)[:0], uint64(e))
		if t, ok := w.Transform(e); ok {
			for _, v := range t.Translation {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
			for _, v := range t.Rotation.V {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(t.Rotation.W))
			for _, v := range t.Scale {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		}
		_, _ = h.Write(buf)
		*bp = buf
	}
	return h.Sum64()
}
