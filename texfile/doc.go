/*
Package texfile reads and writes texture artifacts and atlas region files.

A texture file starts with the "TEXF" magic and a length-prefixed CBOR header
(dimensions, logical size, pixel format, storage kind, flags, palette and a
BLAKE3 digest of the payloads). A block table and block bodies follow, one per
level from smallest to largest. Blocks are stored as COPY, as an LZ4
chunk stream with a rolling 64KB dictionary, or as a zstd frame.

Region files ("TEXR") describe where one source image lives inside a shared
atlas texture.
*/
package texfile
