package renderer

// Band is the half-open scanline range [Y0, Y1)
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of scanlines in the band
func (b Band) Rows() int {
	return b.Y1 - b.Y0
}

// SplitBand cuts a band into consecutive chunks of at most rowsPerTask
// scanlines, the unit of work handed to one worker.
func SplitBand(b Band, rowsPerTask int) []Band {
	if rowsPerTask < 1 {
		rowsPerTask = 1
	}
	var chunks []Band
	for y := b.Y0; y < b.Y1; y += rowsPerTask {
		chunks = append(chunks, Band{Y0: y, Y1: min(y+rowsPerTask, b.Y1)})
	}
	return chunks
}
