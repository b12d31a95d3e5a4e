/*
Package pixel holds the in-memory image representation used by the import
pipeline.

A Buffer carries a format tag, base dimensions and zero or more mip levels.
Uncompressed buffers (RGB8, RGBA8) store NRGBA levels, indexed buffers store
paletted levels and compressed buffers store opaque per-level payloads
produced by a codec. Operations never modify the receiver; they return a new
Buffer, or the receiver itself when there is nothing to do. Blit is the one
exception and is meant for buffers the caller allocated with New.
*/
package pixel
