package surface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_EmptyMask(t *testing.T) {
	m := newMask(t, 50, 50)

	shapes := Extract(m, DefaultOptions())
	assert.NotNil(t, shapes)
	assert.Empty(t, shapes)
}

func TestExtract_NilMask(t *testing.T) {
	assert.Empty(t, Extract(nil, DefaultOptions()))
}

func TestExtract_SingleRectangle(t *testing.T) {
	m := newMask(t, 50, 40, image.Rect(5, 5, 25, 15))

	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 1)

	s := shapes[0]
	assert.Equal(t, 0, s.ID)
	assert.Equal(t, NoParent, s.ParentID)
	assert.Equal(t, 0, s.TopAncestorID)
	assert.ElementsMatch(t, []image.Point{
		{X: 5, Y: 5}, {X: 5, Y: 14}, {X: 24, Y: 14}, {X: 24, Y: 5},
	}, s.Outline)
	assert.Equal(t, image.Point{X: 5, Y: 5}, s.Outline[0], "trace starts at the first raster pixel")
}

func TestExtract_FullOutline(t *testing.T) {
	m := newMask(t, 50, 40, image.Rect(5, 5, 25, 15))

	opts := DefaultOptions()
	opts.Approximation = ApproxNone
	shapes := Extract(m, opts)
	require.Len(t, shapes, 1)

	// Every border pixel of a 20x10 block appears exactly once.
	assert.Len(t, shapes[0].Outline, 2*(20+10)-4)
	seen := make(map[image.Point]bool)
	for _, p := range shapes[0].Outline {
		assert.False(t, seen[p], "border pixel %v visited twice", p)
		seen[p] = true
	}
}

func TestExtract_MinAreaIsStrict(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		count int
	}{
		{name: "area exactly at floor is dropped", size: 11, count: 0}, // 10*10 = 100
		{name: "area above floor is kept", size: 12, count: 1},         // 11*11 = 121
		{name: "single pixel is dropped", size: 1, count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMask(t, 40, 40, image.Rect(10, 10, 10+tt.size, 10+tt.size))
			assert.Len(t, Extract(m, DefaultOptions()), tt.count)
		})
	}
}

func TestExtract_ThinLineHasNoArea(t *testing.T) {
	m := newMask(t, 200, 20, image.Rect(10, 10, 190, 11))

	assert.Empty(t, Extract(m, DefaultOptions()))
}

func TestExtract_DiagonalNeighboursJoin(t *testing.T) {
	// Two blocks touching only at a corner form one 8-connected component.
	m := newMask(t, 60, 60, image.Rect(5, 5, 20, 20), image.Rect(20, 20, 35, 35))

	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 1)
	assert.Equal(t, image.Point{X: 5, Y: 5}, shapes[0].Outline[0])
}

func TestExtract_RasterOrderIDs(t *testing.T) {
	m := newMask(t, 200, 200,
		image.Rect(100, 100, 150, 150),
		image.Rect(10, 10, 40, 40),
		image.Rect(10, 120, 40, 150),
	)

	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 3)
	assert.Equal(t, image.Point{X: 10, Y: 10}, shapes[0].Outline[0])
	assert.Equal(t, image.Point{X: 100, Y: 100}, shapes[1].Outline[0])
	assert.Equal(t, image.Point{X: 10, Y: 120}, shapes[2].Outline[0])
	for i, s := range shapes {
		assert.Equal(t, i, s.ID)
	}
}

// nestedMask draws a thick frame with a solid block inside its hole.
func nestedMask(t *testing.T) *Mask {
	t.Helper()
	m := newMask(t, 80, 80, image.Rect(5, 5, 65, 65))
	m.FillRect(image.Rect(15, 15, 55, 55), false)
	m.FillRect(image.Rect(25, 25, 45, 45), true)
	return m
}

func TestExtract_ExternalSkipsNested(t *testing.T) {
	shapes := Extract(nestedMask(t), DefaultOptions())

	require.Len(t, shapes, 1)
	assert.Equal(t, NoParent, shapes[0].ParentID)
	assert.Equal(t, image.Point{X: 5, Y: 5}, shapes[0].Outline[0])
}

func TestExtract_TreeLinksParents(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = RetrieveTree

	shapes := Extract(nestedMask(t), opts)

	require.Len(t, shapes, 2)
	assert.Equal(t, NoParent, shapes[0].ParentID)
	assert.Equal(t, 0, shapes[1].ParentID)
	assert.Equal(t, image.Point{X: 25, Y: 25}, shapes[1].Outline[0])
}

func TestExtract_TreeThreeLevels(t *testing.T) {
	// Frame, ring inside its hole, block inside the ring's hole.
	m := newMask(t, 120, 120, image.Rect(5, 5, 115, 115))
	m.FillRect(image.Rect(15, 15, 105, 105), false)
	m.FillRect(image.Rect(30, 30, 90, 90), true)
	m.FillRect(image.Rect(40, 40, 80, 80), false)
	m.FillRect(image.Rect(50, 50, 70, 70), true)

	opts := DefaultOptions()
	opts.Mode = RetrieveTree
	shapes := Extract(m, opts)

	require.Len(t, shapes, 3)
	assert.Equal(t, NoParent, shapes[0].ParentID)
	assert.Equal(t, 0, shapes[1].ParentID)
	assert.Equal(t, 1, shapes[2].ParentID)

	require.NoError(t, ResolveTopAncestors(shapes))
	for _, s := range shapes {
		assert.Equal(t, 0, s.TopAncestorID)
	}
}

func TestExtract_TreeDropsSmallChild(t *testing.T) {
	// The block inside the frame's hole is below the area floor.
	m := newMask(t, 80, 80, image.Rect(5, 5, 65, 65))
	m.FillRect(image.Rect(15, 15, 55, 55), false)
	m.FillRect(image.Rect(30, 30, 35, 35), true)

	opts := DefaultOptions()
	opts.Mode = RetrieveTree
	shapes := Extract(m, opts)

	require.Len(t, shapes, 1)
	assert.Equal(t, NoParent, shapes[0].ParentID)
}

func TestExtract_ShapeTouchingBorder(t *testing.T) {
	m := newMask(t, 40, 40, image.Rect(0, 0, 20, 20))

	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 1)
	assert.Equal(t, NoParent, shapes[0].ParentID)
}

func TestNewMask(t *testing.T) {
	t.Run("nil image", func(t *testing.T) {
		_, err := NewMask(nil)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("empty bounds", func(t *testing.T) {
		_, err := NewMask(image.NewGray(image.Rect(0, 0, 0, 0)))
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("offset gray image", func(t *testing.T) {
		img := image.NewGray(image.Rect(10, 10, 20, 20))
		img.Pix[img.PixOffset(12, 13)] = 255

		m, err := NewMask(img)
		require.NoError(t, err)
		assert.Equal(t, 10, m.Width)
		assert.True(t, m.At(2, 3))
		assert.Equal(t, 1, m.Count())
	})

	t.Run("rgba image", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Pix[img.PixOffset(1, 1)] = 200
		img.Pix[img.PixOffset(1, 1)+3] = 255

		m, err := NewMask(img)
		require.NoError(t, err)
		assert.True(t, m.At(1, 1))
		assert.False(t, m.At(0, 0))
	})
}

func TestFillOutline(t *testing.T) {
	m := newMask(t, 50, 40, image.Rect(5, 5, 25, 15))
	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 1)

	filled, err := FillOutline(shapes[0].Outline, 50, 40)
	require.NoError(t, err)
	assert.Equal(t, 200, filled.Count())
	assert.Equal(t, m.Pix, filled.Pix)
}

func TestFillOutline_Nonconvex(t *testing.T) {
	// An L-shaped block round-trips through trace and fill.
	m := newMask(t, 60, 60, image.Rect(10, 10, 20, 50), image.Rect(20, 40, 50, 50))
	opts := DefaultOptions()
	shapes := Extract(m, opts)
	require.Len(t, shapes, 1)

	filled, err := FillOutline(shapes[0].Outline, 60, 60)
	require.NoError(t, err)
	assert.Equal(t, m.Count(), filled.Count())
}
