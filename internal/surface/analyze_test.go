package surface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayFromMask(t *testing.T, m *Mask) *image.Gray {
	t.Helper()
	return m.Gray()
}

func TestAnalyze_SingleShape(t *testing.T) {
	// 101x51 block: traced area 100*50 px².
	m := newMask(t, 200, 100, image.Rect(10, 10, 111, 61))

	inv, err := Analyze(grayFromMask(t, m), 1, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, inv.Shapes, 1)
	s := inv.Shapes[0]
	assert.InDelta(t, 5000.0, s.AreaPx, 1e-9)
	assert.InDelta(t, 5000.0, s.AreaPhysical, 1e-9)
	assert.Equal(t, LabelDorsal, s.Label)
	assert.Equal(t, []int{0}, inv.Retained)
	assert.Empty(t, inv.Discarded)
	assert.False(t, inv.Empty())
}

func TestAnalyze_DorsalVentralPair(t *testing.T) {
	m := newMask(t, 800, 100,
		image.Rect(10, 10, 111, 61),
		image.Rect(500, 10, 601, 61),
	)

	inv, err := Analyze(grayFromMask(t, m), 1, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, map[Label]int{LabelDorsal: 1, LabelVentral: 1}, inv.LabelCounts())
	assert.Equal(t, LabelDorsal, inv.Shapes[0].Label)
	assert.Equal(t, LabelVentral, inv.Shapes[1].Label)
}

func TestAnalyze_DorsalAndPlatform(t *testing.T) {
	m := newMask(t, 800, 200,
		image.Rect(10, 10, 111, 61),  // area 5000
		image.Rect(400, 10, 431, 51), // area 1200, smaller in both dimensions
		image.Rect(700, 10, 706, 21), // area 50, dropped at extraction
	)

	inv, err := Analyze(grayFromMask(t, m), 1, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, inv.Shapes, 2)
	dorsal, ok := inv.Labelled(LabelDorsal)
	require.True(t, ok)
	assert.InDelta(t, 5000.0, dorsal.AreaPx, 1e-9)

	platform, ok := inv.Labelled(LabelPlatform)
	require.True(t, ok)
	assert.InDelta(t, 1200.0, platform.AreaPx, 1e-9)

	_, ok = inv.Labelled(LabelLateral)
	assert.False(t, ok)
}

func TestAnalyze_DuplicateRemoved(t *testing.T) {
	m := newMask(t, 300, 200,
		image.Rect(10, 10, 111, 61), // area 5000
		image.Rect(10, 70, 108, 121), // area 4850, centroid ~60 px away
	)

	inv, err := Analyze(grayFromMask(t, m), 1, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{0}, inv.Retained)
	assert.Equal(t, []int{1}, inv.Discarded)
	assert.Len(t, inv.Shapes, 2, "discarded shapes stay in the inventory")
	assert.Equal(t, LabelDorsal, inv.Shapes[0].Label)
	assert.Equal(t, LabelNone, inv.Shapes[1].Label)
	assert.Len(t, inv.Surfaces(), 1)
}

func TestAnalyze_EmptyImage(t *testing.T) {
	m := newMask(t, 100, 100)

	inv, err := Analyze(grayFromMask(t, m), 1, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.Empty())
	assert.Empty(t, inv.Surfaces())
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("nil image", func(t *testing.T) {
		inv, err := Analyze(nil, 1, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidImage)
		assert.Nil(t, inv)
	})

	t.Run("zero size image", func(t *testing.T) {
		_, err := Analyze(image.NewGray(image.Rect(0, 0, 0, 0)), 1, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("invalid conversion factor", func(t *testing.T) {
		m := newMask(t, 10, 10)
		_, err := Analyze(grayFromMask(t, m), 0, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidConversionFactor)
	})

	t.Run("nil mask", func(t *testing.T) {
		_, err := AnalyzeMask(nil, 1, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestAnalyze_Deterministic(t *testing.T) {
	m := newMask(t, 900, 300,
		image.Rect(10, 10, 111, 61),
		image.Rect(400, 10, 431, 51),
		image.Rect(600, 100, 800, 130),
		image.Rect(10, 200, 60, 260),
	)
	img := grayFromMask(t, m)

	first, err := Analyze(img, 2.5, DefaultOptions())
	require.NoError(t, err)
	second, err := Analyze(img, 2.5, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_TreeModeKeepsNestedUnlabelled(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = RetrieveTree

	inv, err := AnalyzeMask(nestedMask(t), 1, opts)
	require.NoError(t, err)

	require.Len(t, inv.Shapes, 2)
	assert.Equal(t, 0, inv.Shapes[1].TopAncestorID)
	assert.Equal(t, LabelDorsal, inv.Shapes[0].Label)
	assert.Equal(t, LabelNone, inv.Shapes[1].Label)
	assert.Len(t, inv.Surfaces(), 1)
}

func TestBuildInventory_MalformedHierarchy(t *testing.T) {
	shapes := []Shape{
		rectShape(0, 5000, 80, 100, 0, 0),
		rectShape(1, 400, 20, 20, 500, 0),
	}
	shapes[0].ParentID = 1
	shapes[1].ParentID = 0

	inv, err := BuildInventory(shapes, 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrMalformedHierarchy)
	assert.Nil(t, inv)
}

func TestBuildInventory_FloorScenario(t *testing.T) {
	shapes := []Shape{
		rectShape(0, 5000, 80, 100, 100, 100),
		rectShape(1, 200, 30, 40, 500, 100),
		rectShape(2, 45, 5, 9, 900, 900),
	}

	inv, err := BuildInventory(shapes, 1, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{2}, inv.Discarded)
	assert.Equal(t, map[Label]int{LabelDorsal: 1, LabelPlatform: 1}, inv.LabelCounts())
}
