package tiff

// ResolvePlaneIndex maps a (series, resolution, plane) triple to the position
// of its directory in the file: every series contributes planes*resolutions
// directories and the resolution levels of one plane are adjacent.
func ResolvePlaneIndex(series, resolution, plane int, planeCounts, resolutionCounts []int) (int, error) {
	if len(planeCounts) != len(resolutionCounts) {
		return 0, configErr("index", "%d plane counts for %d resolution counts", len(planeCounts), len(resolutionCounts))
	}
	if series < 0 || series >= len(planeCounts) {
		return 0, configErr("index", "series %d out of range (%d series)", series, len(planeCounts))
	}
	if plane < 0 || plane >= planeCounts[series] {
		return 0, configErr("index", "plane %d out of range (%d planes)", plane, planeCounts[series])
	}
	if resolution < 0 || resolution >= resolutionCounts[series] {
		return 0, configErr("index", "resolution %d out of range (%d levels)", resolution, resolutionCounts[series])
	}
	index := plane*resolutionCounts[series] + resolution
	for k := 0; k < series; k++ {
		index += planeCounts[k] * resolutionCounts[k]
	}
	return index, nil
}
