package mmap

import "math"

// MaxSize is the largest file Open will map: 256 TiB on 64-bit platforms and
// 2 GiB on 32-bit ones.
const MaxSize = min(math.MaxInt, 0xFFFF_FFFF_FFFF)
