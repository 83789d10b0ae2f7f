package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores flag defaults left over from earlier executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "lithics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholding:\n  method: simple\nlogging:\n  level: error\n"), 0o644))
	return path
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lithics.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "surfaces:")

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()

	cfgPath := writeConfig(t, dir)

	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(50, 40, 250, 160), image.NewUniform(color.Black), image.Point{}, draw.Src)
	imgPath := filepath.Join(dir, "flake.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	out, err := execute(t, "--config", cfgPath, "analyze", imgPath, "--pixels-per-mm", "10", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "image_id,surface_id,label"))
	assert.True(t, strings.HasPrefix(lines[1], "flake.png,"))
	assert.Contains(t, lines[1], ",Dorsal,")
}

func TestAnalyze_MissingDPI(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "plain.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())

	_, err = execute(t, "--config", writeConfig(t, dir), "analyze", imgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pixels-per-mm")
}
