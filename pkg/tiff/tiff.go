// Package tiff writes tiled and stripped TIFF and BigTIFF files.
//
// A Writer takes the planes of one or more series (each with optional
// resolution levels) described by a MetadataSource and stores every plane as
// its own directory. Planes may be written region by region, from several
// goroutines, in any order; regions are cut along the absolute tile grid so
// that separate calls fill the same stored tiles. Directories are linked in
// (series, plane, resolution) order and the file switches to 64-bit offsets
// when the declared pixel data would not fit in 4 GiB.
package tiff
