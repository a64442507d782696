package vox

import "sync"

// Content buffers are flushed once they reach flushThreshold, so a voxel can
// push one past it by at most a few bytes.
var contentBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, flushThreshold+16)
	},
}

func releaseContentBytes(b []byte) {
	contentBytesPool.Put(b[:0])
}
