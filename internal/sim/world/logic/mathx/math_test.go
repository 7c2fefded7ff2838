package mathx

import "testing"

func TestCellOf(t *testing.T) {
	if got := CellOf(-0.5, 8); got != -1 {
		t.Fatalf("CellOf(-0.5)=%d", got)
	}
	if got := CellOf(63.9, 8); got != 7 {
		t.Fatalf("CellOf(63.9)=%d", got)
	}
}

func TestWithinRadiusIsStrict(t *testing.T) {
	if !WithinRadius(0, 0, 2, 0, 3) {
		t.Fatalf("expected (2,0) inside r=3")
	}
	if WithinRadius(0, 0, 3, 0, 3) {
		t.Fatalf("expected (3,0) on the boundary to be outside")
	}
}

func TestRandBetweenInclusive(t *testing.T) {
	r := NewRand(1)
	seenMin, seenMax := false, false
	for i := 0; i < 2000; i++ {
		v := r.Between(4, 10)
		if v < 4 || v > 10 {
			t.Fatalf("out of range: %d", v)
		}
		seenMin = seenMin || v == 4
		seenMax = seenMax || v == 10
	}
	if !seenMin || !seenMax {
		t.Fatalf("expected both ends to be drawn: min=%v max=%v", seenMin, seenMax)
	}
	if NewRand(9).Between(7, 7) != 7 {
		t.Fatalf("degenerate range")
	}
}

func TestHash3Golden(t *testing.T) {
	cases := []struct {
		x, y, salt int
		want       uint64
	}{
		{3, 0, 7, 16429198077342127132},
		{3, 0, 8, 8658176890797200358},
		{-1, -1, 7, 2511602940378553238},
	}
	for _, tc := range cases {
		if got := Hash3(42, tc.x, tc.y, tc.salt); got != tc.want {
			t.Fatalf("Hash3(42,%d,%d,%d)=%d want %d", tc.x, tc.y, tc.salt, got, tc.want)
		}
	}
	if got := HashBetween(Hash3(42, 3, 0, 7), 5, 10); got != 9 {
		t.Fatalf("HashBetween=%d want 9", got)
	}
}
