package imaging

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

func TestPreprocess_SimpleThreshold(t *testing.T) {
	silhouette := image.Rect(40, 30, 140, 80)
	img := paperImage(200, 120, silhouette)

	opts := DefaultPreprocessOptions()
	opts.ThresholdMethod = ThresholdSimple

	mask, err := Preprocess(img, opts)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 200, 120), mask.Bounds())
	assert.Equal(t, uint8(255), mask.GrayAt(90, 55).Y, "artifact interior is foreground")
	assert.Equal(t, uint8(0), mask.GrayAt(5, 5).Y, "paper is background")
	assert.InDelta(t, 100*50, countAbove(mask, 0), 100*2+50*2)
}

func TestPreprocess_Otsu(t *testing.T) {
	img := paperImage(200, 120, image.Rect(40, 30, 140, 80))

	opts := DefaultPreprocessOptions()
	opts.ThresholdMethod = ThresholdOtsu

	mask, err := Preprocess(img, opts)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), mask.GrayAt(90, 55).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(190, 110).Y)
}

func TestPreprocess_AdaptiveFindsOutline(t *testing.T) {
	silhouette := image.Rect(40, 30, 140, 80)
	img := paperImage(200, 120, silhouette)

	mask, err := Preprocess(img, DefaultPreprocessOptions())
	require.NoError(t, err)

	// Adaptive thresholding keeps the rim of the silhouette, not its flat interior.
	assert.Equal(t, uint8(255), mask.GrayAt(40, 55).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(90, 55).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(5, 5).Y)

	inv, err := surface.Analyze(mask, 1, surface.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, inv.Surfaces(), 1)

	box := inv.Surfaces()[0].BoundingBox
	assert.InDelta(t, silhouette.Min.X, box.X, 3)
	assert.InDelta(t, silhouette.Min.Y, box.Y, 3)
	assert.InDelta(t, silhouette.Dx(), box.Width, 6)
	assert.InDelta(t, silhouette.Dy(), box.Height, 6)
	assert.Equal(t, surface.LabelDorsal, inv.Surfaces()[0].Label)
}

func TestPreprocess_NoInvert(t *testing.T) {
	img := paperImage(100, 100, image.Rect(20, 20, 80, 80))

	opts := DefaultPreprocessOptions()
	opts.ThresholdMethod = ThresholdSimple
	opts.Invert = false

	mask, err := Preprocess(img, opts)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), mask.GrayAt(50, 50).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(5, 5).Y)
}

func TestPreprocess_UnsupportedMethods(t *testing.T) {
	img := paperImage(20, 20)

	tests := []struct {
		name   string
		mutate func(*PreprocessOptions)
	}{
		{"grayscale", func(o *PreprocessOptions) { o.GrayscaleMethod = "sepia" }},
		{"normalization", func(o *PreprocessOptions) { o.NormalizeMethod = "histogram" }},
		{"threshold", func(o *PreprocessOptions) { o.ThresholdMethod = "triangle" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultPreprocessOptions()
			tt.mutate(&opts)
			_, err := Preprocess(img, opts)
			assert.ErrorIs(t, err, ErrUnsupportedMethod)
		})
	}
}

func TestPreprocess_EmptyImage(t *testing.T) {
	_, err := Preprocess(image.NewGray(image.Rect(0, 0, 0, 0)), DefaultPreprocessOptions())
	assert.Error(t, err)

	_, err = Preprocess(nil, DefaultPreprocessOptions())
	assert.Error(t, err)
}

func TestToGrayscale_CLAHE(t *testing.T) {
	img := paperImage(64, 64, image.Rect(16, 16, 48, 48))

	opts := DefaultPreprocessOptions()
	opts.GrayscaleMethod = GrayscaleCLAHE

	gray, err := ToGrayscale(img, opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), gray.Bounds())
	assert.Greater(t, gray.GrayAt(2, 2).Y, gray.GrayAt(32, 32).Y, "paper stays brighter than the artifact")
}

func TestNormalizeContrast(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.Pix[0], gray.Pix[1] = 100, 150

	t.Run("minmax", func(t *testing.T) {
		out, err := NormalizeContrast(gray, DefaultPreprocessOptions())
		require.NoError(t, err)
		assert.Equal(t, []uint8{0, 255}, out.Pix)
	})

	t.Run("minmax with clip values", func(t *testing.T) {
		opts := DefaultPreprocessOptions()
		opts.ClipMin, opts.ClipMax = 10, 200
		out, err := NormalizeContrast(gray, opts)
		require.NoError(t, err)
		assert.Equal(t, []uint8{10, 200}, out.Pix)
	})

	t.Run("zscore", func(t *testing.T) {
		opts := DefaultPreprocessOptions()
		opts.NormalizeMethod = NormalizeZScore
		out, err := NormalizeContrast(gray, opts)
		require.NoError(t, err)
		assert.Equal(t, []uint8{85, 170}, out.Pix)
	})

	t.Run("flat image unchanged", func(t *testing.T) {
		flat := grayFill(3, 3, 77)
		for _, method := range []string{NormalizeMinMax, NormalizeZScore} {
			opts := DefaultPreprocessOptions()
			opts.NormalizeMethod = method
			out, err := NormalizeContrast(flat, opts)
			require.NoError(t, err)
			assert.Equal(t, flat.Pix, out.Pix, method)
		}
	})
}
