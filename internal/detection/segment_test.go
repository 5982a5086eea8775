package detection

import (
	"errors"
	"reflect"
	"testing"
)

// maskFromStrings builds a mask where '#' is foreground
func maskFromStrings(rows ...string) *Mask {
	mask := NewMask(len(rows), len(rows[0]))
	for r, line := range rows {
		for c, ch := range line {
			mask.Set(r, c, ch == '#')
		}
	}
	return mask
}

func TestLabel_TwoBlobsScanOrder(t *testing.T) {
	mask := maskFromStrings(
		"......",
		"....##",
		"##..##",
		"##....",
	)

	labels := Label(mask, Four)

	if labels.Count != 2 {
		t.Fatalf("Count: got %d, want 2", labels.Count)
	}
	// The right blob starts on row 1, so it is met first.
	if labels.At(1, 4) != 1 {
		t.Errorf("right blob label: got %d, want 1", labels.At(1, 4))
	}
	if labels.At(2, 0) != 2 {
		t.Errorf("left blob label: got %d, want 2", labels.At(2, 0))
	}
	if labels.At(0, 0) != 0 {
		t.Errorf("background label: got %d, want 0", labels.At(0, 0))
	}
}

func TestLabel_Connectivity(t *testing.T) {
	mask := maskFromStrings(
		"#..",
		".#.",
		"..#",
	)

	if got := Label(mask, Four).Count; got != 3 {
		t.Errorf("4-connectivity: got %d regions, want 3", got)
	}
	if got := Label(mask, Eight).Count; got != 1 {
		t.Errorf("8-connectivity: got %d regions, want 1", got)
	}
}

func TestLabel_EmptyMask(t *testing.T) {
	labels := Label(NewMask(5, 7), Four)
	if labels.Count != 0 {
		t.Errorf("Count: got %d, want 0", labels.Count)
	}
	for i, l := range labels.Pix {
		if l != 0 {
			t.Fatalf("Pix[%d] = %d on empty mask", i, l)
		}
	}
}

func TestLabel_ContiguousLabels(t *testing.T) {
	mask := maskFromStrings(
		"#.#.#",
		".....",
		"#.#.#",
	)

	labels := Label(mask, Four)
	if labels.Count != 6 {
		t.Fatalf("Count: got %d, want 6", labels.Count)
	}
	sizes := RegionSizes(labels)
	for l := 1; l <= labels.Count; l++ {
		if sizes[l] != 1 {
			t.Errorf("label %d: size %d, want 1", l, sizes[l])
		}
	}
	if sizes[0] != 9 {
		t.Errorf("background size: got %d, want 9", sizes[0])
	}
}

func TestLabel_Deterministic(t *testing.T) {
	mask := maskFromStrings(
		"##..#..",
		"#...##.",
		"...#...",
		"##.##.#",
	)

	first := Label(mask, Four)
	second := Label(mask, Four)
	if !reflect.DeepEqual(first, second) {
		t.Error("labeling the same mask twice produced different results")
	}
}

func TestLabel_LargeRegion(t *testing.T) {
	mask := NewMask(300, 300)
	for i := range mask.Pix {
		mask.Pix[i] = true
	}
	labels := Label(mask, Eight)
	if labels.Count != 1 {
		t.Errorf("Count: got %d, want 1", labels.Count)
	}
}

func TestParseConnectivity(t *testing.T) {
	if c, err := ParseConnectivity(0); err != nil || c != Four {
		t.Errorf("ParseConnectivity(0) = %v, %v", c, err)
	}
	if c, err := ParseConnectivity(8); err != nil || c != Eight {
		t.Errorf("ParseConnectivity(8) = %v, %v", c, err)
	}
	if _, err := ParseConnectivity(6); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("ParseConnectivity(6): expected ErrInvalidOptions, got %v", err)
	}
}
