package tiff

// ExtractTile copies tile out of src, which holds the pixels of source.
// A planar src stores each channel as its own source.Width*source.Height plane
// and yields a channel-major tile; an interleaved src yields a chunky tile.
func ExtractTile(src []byte, tile, source Region, channels, bytesPerPixel int, interleaved bool) ([]byte, error) {
	if err := checkCopy("extract", src, tile, source, channels, bytesPerPixel); err != nil {
		return nil, err
	}
	out := make([]byte, tile.Width*tile.Height*channels*bytesPerPixel)
	copyRegion(out, tile, src, source, tile, channels, bytesPerPixel, interleaved)
	return out, nil
}

// InsertTile writes tile pixels into dst, which holds the pixels of target.
// Layout rules match ExtractTile.
func InsertTile(dst []byte, target Region, src []byte, tile Region, channels, bytesPerPixel int, interleaved bool) error {
	if err := checkCopy("insert", dst, tile, target, channels, bytesPerPixel); err != nil {
		return err
	}
	if len(src) < tile.Width*tile.Height*channels*bytesPerPixel {
		return configErr("insert", "tile buffer has %d bytes, want %d", len(src), tile.Width*tile.Height*channels*bytesPerPixel)
	}
	copyRegion(dst, target, src, tile, tile, channels, bytesPerPixel, interleaved)
	return nil
}

func checkCopy(op string, buf []byte, tile, outer Region, channels, bytesPerPixel int) error {
	switch {
	case channels <= 0 || bytesPerPixel <= 0:
		return configErr(op, "invalid sample layout %d channels x %d bytes", channels, bytesPerPixel)
	case tile.Empty():
		return configErr(op, "empty tile %s", tile)
	case !outer.Contains(tile):
		return configErr(op, "tile %s outside %s", tile, outer)
	}
	if want := outer.Width * outer.Height * channels * bytesPerPixel; len(buf) < want {
		return configErr(op, "buffer has %d bytes, want %d", len(buf), want)
	}
	return nil
}

// copyRegion copies area from src (laid out as srcR) into dst (laid out as dstR)
func copyRegion(dst []byte, dstR Region, src []byte, srcR Region, area Region, channels, bpp int, interleaved bool) {
	if interleaved {
		px := channels * bpp
		n := area.Width * px
		for y := 0; y < area.Height; y++ {
			so := ((area.Y-srcR.Y+y)*srcR.Width + (area.X - srcR.X)) * px
			do := ((area.Y-dstR.Y+y)*dstR.Width + (area.X - dstR.X)) * px
			copy(dst[do:do+n], src[so:so+n])
		}
		return
	}
	n := area.Width * bpp
	srcPlane := srcR.Width * srcR.Height * bpp
	dstPlane := dstR.Width * dstR.Height * bpp
	for c := 0; c < channels; c++ {
		for y := 0; y < area.Height; y++ {
			so := c*srcPlane + ((area.Y-srcR.Y+y)*srcR.Width+(area.X-srcR.X))*bpp
			do := c*dstPlane + ((area.Y-dstR.Y+y)*dstR.Width+(area.X-dstR.X))*bpp
			copy(dst[do:do+n], src[so:so+n])
		}
	}
}
