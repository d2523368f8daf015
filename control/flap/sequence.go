package flap

// sequence holds the coil pattern of one register byte for each of the four full-step phases of a
// 28BYJ-48 driven through a ULN2003.  The column is 2*high + low, where high and low say whether
// the digit on that nibble is turning.
var sequence = [4][4]byte{
	{0, 3, 48, 51},
	{0, 6, 96, 102},
	{0, 12, 192, 204},
	{0, 9, 144, 153},
}

// Pattern returns the register byte for a pair of digits at the given phase.  The even digit of the
// pair is on the high nibble.
func Pattern(phase int, high, low bool) byte {
	var col int
	if high {
		col += 2
	}
	if low {
		col++
	}
	return sequence[phase%4][col]
}

// Frame returns one byte per register for a single tick: digit 2r and 2r+1 share register r.  A
// missing odd digit at the end of the chain never turns.
func Frame(phase int, moving []bool, registers int) []byte {
	frame := make([]byte, registers)
	for r := range frame {
		var high, low bool
		if i := 2 * r; i < len(moving) {
			high = moving[i]
		}
		if i := 2*r + 1; i < len(moving) {
			low = moving[i]
		}
		frame[r] = Pattern(phase, high, low)
	}
	return frame
}
