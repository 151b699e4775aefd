package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func execute(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(bytes.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.Bytes(), err
}

func TestRun_Stdin(t *testing.T) {
	out, err := execute(t, testPNG(t, 200, 150), "--max-bytes", "10000")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(out), 10000)
	assert.Equal(t, "image/jpeg", codec.Sniff(out))
}

func TestRun_FileToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.webp")
	require.NoError(t, os.WriteFile(in, testPNG(t, 120, 120), 0644))

	out, err := execute(t, nil, in, "--max-bytes", "8000", "--format", "webp", "-o", dst)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), 8000)
	assert.Equal(t, "image/webp", codec.Sniff(data))
}

func TestRun_OutputModes(t *testing.T) {
	src := testPNG(t, 100, 80)

	out, err := execute(t, src, "-", "--max-base64", "6000", "--output-mode", "base64")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 6000)
	raw, err := base64.StdEncoding.DecodeString(string(out))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", codec.Sniff(raw))

	out, err = execute(t, src, "--max-bytes", "6000", "--output-mode", "uri")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "data:image/jpeg;base64,"))
}

func TestRun_ExitCodes(t *testing.T) {
	valid := testPNG(t, 64, 64)

	tests := []struct {
		name  string
		stdin []byte
		args  []string
		want  int
	}{
		{"no ceiling", valid, nil, exitInvalid},
		{"zero ceiling", valid, []string{"--max-bytes", "0"}, exitInvalid},
		{"bad format", valid, []string{"--max-bytes", "100", "--format", "gif"}, exitInvalid},
		{"bad output mode", valid, []string{"--max-bytes", "100", "--output-mode", "hex"}, exitInvalid},
		{"unknown flag", valid, []string{"--nope"}, exitInvalid},
		{"too many args", valid, []string{"a", "b"}, exitInvalid},
		{"not an image", []byte("hello"), []string{"--max-bytes", "100"}, exitDecode},
		{"exhausted", valid, []string{"--max-bytes", "10"}, exitExhausted},
		{"missing file", nil, []string{"/nonexistent/input.png", "--max-bytes", "100"}, exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, exitCode(err), "err = %v", err)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
	assert.Equal(t, exitInvalid, exitCode(usageError{errors.New("bad flag")}))
}
