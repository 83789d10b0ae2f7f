package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(shapes []Shape) []int {
	out := make([]int, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, s.ID)
	}
	sortByAreaDesc(shapes, out)
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		shapes []Shape
		want   map[int]Label
	}{
		{
			name:   "no candidates",
			shapes: nil,
			want:   map[int]Label{},
		},
		{
			name:   "single shape is dorsal",
			shapes: []Shape{rectShape(0, 5000, 100, 50, 100, 100)},
			want:   map[int]Label{0: LabelDorsal},
		},
		{
			name: "matching pair is dorsal and ventral",
			shapes: []Shape{
				rectShape(0, 5000, 100, 50, 100, 100),
				rectShape(1, 5000, 100, 50, 600, 100),
			},
			want: map[int]Label{0: LabelDorsal, 1: LabelVentral},
		},
		{
			name: "platform then lateral",
			shapes: []Shape{
				rectShape(0, 5000, 80, 100, 100, 100),
				rectShape(1, 200, 30, 40, 500, 100),
				rectShape(2, 1000, 90, 20, 900, 100),
			},
			want: map[int]Label{0: LabelDorsal, 1: LabelPlatform, 2: LabelLateral},
		},
		{
			name: "platform needs both dimensions strictly smaller",
			shapes: []Shape{
				rectShape(0, 5000, 80, 100, 100, 100),
				rectShape(1, 900, 80, 20, 500, 100),
				rectShape(2, 800, 20, 100, 900, 100),
			},
			want: map[int]Label{0: LabelDorsal, 1: LabelLateral, 2: LabelUnclassified},
		},
		{
			name: "ventral pair with platform and lateral",
			shapes: []Shape{
				rectShape(0, 5000, 80, 100, 100, 100),
				rectShape(1, 4900, 79, 99, 600, 100),
				rectShape(2, 400, 20, 20, 1100, 100),
				rectShape(3, 300, 20, 20, 1600, 100),
				rectShape(4, 200, 20, 20, 2100, 100),
			},
			want: map[int]Label{
				0: LabelDorsal, 1: LabelVentral, 2: LabelPlatform,
				3: LabelLateral, 4: LabelUnclassified,
			},
		},
		{
			name: "second largest failing ventral can be platform",
			shapes: []Shape{
				rectShape(0, 5000, 80, 100, 100, 100),
				rectShape(1, 3000, 60, 70, 600, 100),
			},
			want: map[int]Label{0: LabelDorsal, 1: LabelPlatform},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.shapes, ids(tt.shapes), 0.05)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		area    float64
		ventral bool
	}{
		{name: "4% difference is ventral", width: 960, height: 960, area: 960000, ventral: true},
		{name: "6% difference is not", width: 940, height: 940, area: 940000, ventral: false},
		{name: "exactly 5% is ventral", width: 950, height: 950, area: 950000, ventral: true},
		{name: "4.9% is ventral", width: 951, height: 951, area: 951000, ventral: true},
		{name: "5.1% is not", width: 949, height: 949, area: 949000, ventral: false},
		{name: "area 0.01% over with exact dimensions", width: 950, height: 950, area: 949900, ventral: false},
		{name: "area 0.01% under with exact dimensions", width: 950, height: 950, area: 950100, ventral: true},
		{name: "width alone over", width: 949, height: 1000, area: 1000000, ventral: false},
		{name: "height alone over", width: 1000, height: 949, area: 1000000, ventral: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes := []Shape{
				rectShape(0, 1000000, 1000, 1000, 1000, 1000),
				rectShape(1, tt.area, tt.width, tt.height, 3000, 1000),
			}

			got := Classify(shapes, ids(shapes), 0.05)
			assert.Equal(t, LabelDorsal, got[0])
			if tt.ventral {
				assert.Equal(t, LabelVentral, got[1])
			} else {
				assert.NotEqual(t, LabelVentral, got[1])
			}
		})
	}
}

func TestClassify_SkipsNestedAndUnretained(t *testing.T) {
	shapes := []Shape{
		rectShape(0, 5000, 80, 100, 100, 100),
		rectShape(1, 400, 20, 20, 100, 100),
		rectShape(2, 300, 20, 20, 900, 100),
	}
	shapes[1].ParentID = 0
	shapes[1].TopAncestorID = 0

	got := Classify(shapes, []int{0, 1}, 0.05)
	assert.Equal(t, map[int]Label{0: LabelDorsal}, got)
}

func TestClassify_Cardinality(t *testing.T) {
	shapes := make([]Shape, 0, 12)
	for i := 0; i < 12; i++ {
		shapes = append(shapes, rectShape(i, float64(1000+i*37), 10+i, 12+i, float64(i*500), 0))
	}

	got := Classify(shapes, ids(shapes), 0.05)

	counts := make(map[Label]int)
	for _, l := range got {
		counts[l]++
	}
	assert.Len(t, got, 12)
	assert.Equal(t, 1, counts[LabelDorsal])
	assert.LessOrEqual(t, counts[LabelVentral], 1)
	assert.LessOrEqual(t, counts[LabelPlatform], 1)
	assert.LessOrEqual(t, counts[LabelLateral], 1)
}

func TestClassify_DefaultTolerance(t *testing.T) {
	shapes := []Shape{
		rectShape(0, 10000, 100, 100, 100, 100),
		rectShape(1, 9600, 96, 96, 600, 100),
	}
	assert.Equal(t, LabelVentral, Classify(shapes, ids(shapes), 0)[1])
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, withinTolerance(0, 0, 0.05))
	assert.True(t, withinTolerance(100, 95, 0.05))
	assert.False(t, withinTolerance(100, 94, 0.05))
	assert.True(t, withinTolerance(95, 100, 0.05))
}
