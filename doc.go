/*
Package vox reads and writes MagicaVoxel VOX files.

A file holds one or more sparse voxel models, a 256-color palette and an
optional table of materials. Decoding goes either into a Data value or,
through the Sink interface, into any consumer that wants to see voxels as
they are read without holding the whole file in memory.

# File Layout

A file starts with the 4-byte magic "VOX " and a little-endian uint32
version (150 for current files). The rest is a tree of chunks. Each chunk has
a 12-byte header:

	id        [4]byte
	content   uint32   length of the chunk's own content
	children  uint32   combined length of the child chunks

followed by content bytes and then child chunks, framed the same way. The
next sibling starts at content offset + content length + children length,
so unknown chunks are skipped by seeking over them.

The top-level chunk is MAIN. Its children are:

	PACK  u32 model count (omitted for a single model; at most once)
	SIZE  i8 x, i8 y, i8 z (one per model)
	XYZI  u32 count, then count × (i8 x, i8 y, i8 z, u8 color index)
	RGBA  255 × (u8 r, u8 g, u8 b, u8 a) for palette indices 1..255 (at most once)
	MATL  u32 id, u8 type, f32 weight, u32 flags, then an f32 per value flag

SIZE and XYZI chunks pair up in order, one pair per model. Files without an
RGBA chunk use DefaultPalette(). Scene graph chunks (nTRN, nGRP, nSHP, LAYR and
so on) are skipped.

# Writing

Chunk lengths are not known until a chunk's content and children are
written, so the chunk package writes a placeholder header and patches it
when the chunk is closed. Write needs an io.WriteSeeker for that reason;
ToBytes uses an in-memory buffer.

# Packages

Package chunk implements the framing. Package mmap maps files read-only for
FromFileMapped. Package store keeps decoded files in a bbolt database keyed
by content digest. Package voxtest helps write byte-level tests.
*/
package vox
