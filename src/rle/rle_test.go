package rle

import (
	"math/rand"
	"testing"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

func maskFromRows(rows ...string) datastructures.BinaryMask {
	m := datastructures.NewBinaryMask(len(rows), len(rows[0]))
	for r, line := range rows {
		for c, ch := range line {
			if ch == '#' {
				m.Pix[r*m.Width+c] = 1
			}
		}
	}
	return m
}

func TestEncodeEmptyMask(t *testing.T) {
	equals(t, 0, len(Encode(datastructures.NewBinaryMask(0, 0))))
	equals(t, 0, len(Encode(datastructures.NewBinaryMask(3, 4))))
	equals(t, "", Encode(datastructures.NewBinaryMask(3, 4)).String())
}

func TestEncodeFullMask(t *testing.T) {
	m := datastructures.NewBinaryMask(5, 7)
	for i := range m.Pix {
		m.Pix[i] = 1
	}
	equals(t, datastructures.RunLengthEncoding{{Start: 1, Length: 35}}, Encode(m))
}

func TestEncodeSinglePixel(t *testing.T) {
	const h, w = 4, 6
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			m := datastructures.NewBinaryMask(h, w)
			m.Pix[row*w+col] = 1
			p := col*h + row
			equals(t, datastructures.RunLengthEncoding{{Start: p + 1, Length: 1}}, Encode(m))
		}
	}
}

func TestEncodeIsColumnMajor(t *testing.T) {
	m := maskFromRows(
		"###",
		"...",
	)
	equals(t, "1 1 3 1 5 1", Encode(m).String())

	m = maskFromRows(
		"#..",
		"#..",
	)
	equals(t, "1 2", Encode(m).String())
}

func TestEncodeRunContinuesAcrossColumns(t *testing.T) {
	m := maskFromRows(
		".#",
		"#.",
	)
	equals(t, datastructures.RunLengthEncoding{{Start: 2, Length: 2}}, Encode(m))
}

func TestEncodeFlat(t *testing.T) {
	m := maskFromRows(
		"#.#",
		"#..",
		"..#",
	)
	enc := Encode(m)
	equals(t, []int{1, 2, 7, 1, 9, 1}, enc.Flat())
	equals(t, 4, enc.Pixels())
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		h, w := 1+rng.Intn(12), 1+rng.Intn(12)
		m := datastructures.NewBinaryMask(h, w)
		for j := range m.Pix {
			if rng.Float64() < 0.4 {
				m.Pix[j] = 1
			}
		}

		enc := Encode(m)
		for k := 1; k < len(enc); k++ {
			prevEnd := enc[k-1].Start + enc[k-1].Length - 1
			if enc[k].Start <= prevEnd+1 {
				t.Fatalf("runs %v and %v are not separated", enc[k-1], enc[k])
			}
		}

		decoded, err := Decode(enc, h, w)
		ok(t, err)
		equals(t, m, decoded)

		parsed, err := Parse(enc.String())
		ok(t, err)
		equals(t, enc, parsed)
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	_, err := Decode(datastructures.RunLengthEncoding{{Start: 5, Length: 3}}, 2, 3)
	notEquals(t, nil, err)
}

func TestParse(t *testing.T) {
	enc, err := Parse("1 3  10 2")
	ok(t, err)
	equals(t, datastructures.RunLengthEncoding{{Start: 1, Length: 3}, {Start: 10, Length: 2}}, enc)

	enc, err = Parse("")
	ok(t, err)
	equals(t, 0, len(enc))

	for _, bad := range []string{"1", "0 1", "3 0", "5 2 3 1", "1 4 4 1", "a 1"} {
		_, err := Parse(bad)
		if err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}
