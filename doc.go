/*
Package teximport converts source images into engine-ready texture artifacts.

An import loads one or more sources, optionally packs them into a single atlas,
applies the alpha related flags and stores the result either as an encoded
image file (PNG, QOI or WebP) or as raw or platform compressed levels inside a
texfile container. Atlas imports additionally write one region file per source.

The Exporter re-encodes images for a target platform and keeps the results in
a content addressed cache so unchanged sources skip recompression.
*/
package teximport
