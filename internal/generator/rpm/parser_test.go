package rpm

import "testing"

func TestFlagToCondition(t *testing.T) {
	cases := []struct {
		flag int64
		want string
	}{
		{flagClassGreater | flagClassEqual, "GE"},
		{flagClassLess | flagClassEqual, "LE"},
		{flagClassGreater, ""},
		{flagClassLess, ""},
		{flagClassEqual, "EQ"},
		{0, ""},
	}

	for _, c := range cases {
		if got := flagToCondition(c.flag); got != c.want {
			t.Errorf("flagToCondition(%d) = %q, want %q", c.flag, got, c.want)
		}
	}
}

func TestAlign8(t *testing.T) {
	cases := map[int64]int64{
		0:  0,
		1:  8,
		7:  8,
		8:  8,
		9:  16,
		16: 16,
	}
	for in, want := range cases {
		if got := align8(in); got != want {
			t.Errorf("align8(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestHeaderSegmentOffsetsRejectsTruncatedInput(t *testing.T) {
	if _, _, err := headerSegmentOffsets(make([]byte, 50)); err == nil {
		t.Fatalf("expected an error for a file too small to be an rpm")
	}
}
