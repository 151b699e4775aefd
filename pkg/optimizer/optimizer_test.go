package optimizer

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder produces size(w, h, q) zero bytes.
type fakeEncoder struct {
	size  func(w, h, q int) int
	calls int
	err   error
}

func (e *fakeEncoder) Encode(img image.Image, _ codec.Format, q int) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	b := img.Bounds()
	return make([]byte, e.size(b.Dx(), b.Dy(), q)), nil
}

// areaSize scales with pixel count and quality.
func areaSize(w, h, q int) int {
	return w * h * q / 100
}

// fixedSize ignores the image: 9,000 bytes at q30, 50,000 bytes at q90.
func fixedSize(_, _, q int) int {
	return 9000 + (q-30)*41000/60
}

// recordingResizer returns blank images of the fitted size and records each
// call.
type recordingResizer struct {
	sides   []int
	sources []image.Rectangle
}

func (r *recordingResizer) Fit(img image.Image, maxSide int) image.Image {
	r.sides = append(r.sides, maxSide)
	r.sources = append(r.sources, img.Bounds())
	w, h := codec.FitDimensions(img.Bounds().Dx(), img.Bounds().Dy(), maxSide)
	return image.NewGray(image.Rect(0, 0, w, h))
}

func blank(w, h int) image.Image {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func TestOptimize_InvalidConstraints(t *testing.T) {
	o := New(&fakeEncoder{size: areaSize}, &recordingResizer{})

	tests := []struct {
		name string
		c    limits.Constraints
	}{
		{"both absent", limits.Constraints{}},
		{"zero binary", limits.Constraints{MaxBinaryBytes: limits.Int(0)}},
		{"negative base64", limits.Constraints{MaxBase64Chars: limits.Int(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Optimize(blank(10, 10), Request{Constraints: tt.c, Format: codec.JPEG, InitialQuality: 85, MinQuality: 10})
			assert.True(t, errors.Is(err, limits.ErrInvalidConstraints), "err = %v", err)
		})
	}
}

func TestOptimize_InvalidInput(t *testing.T) {
	o := New(&fakeEncoder{size: areaSize}, &recordingResizer{})
	c := limits.Constraints{MaxBinaryBytes: limits.Int(100)}

	_, err := o.Optimize(blank(10, 10), Request{Constraints: c, Format: "png"})
	assert.True(t, errors.Is(err, codec.ErrUnsupportedFormat))

	_, err = o.Optimize(nil, Request{Constraints: c, Format: codec.JPEG})
	assert.True(t, errors.Is(err, codec.ErrInvalidImageDimensions))
}

func TestOptimize_NativeScenario(t *testing.T) {
	enc := &fakeEncoder{size: fixedSize}
	rs := &recordingResizer{}
	o := New(enc, rs)

	res, err := o.Optimize(blank(1024, 768), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(10000)},
		Format:         codec.JPEG,
		InitialQuality: 90,
		MinQuality:     30,
	})
	require.NoError(t, err)

	assert.Equal(t, 31, res.Quality)
	assert.LessOrEqual(t, len(res.Data), 10000)
	assert.Equal(t, 0, res.Tier)
	assert.Equal(t, 1024, res.Width)
	assert.Equal(t, 768, res.Height)
	assert.Equal(t, enc.calls, res.Probes)
	assert.Empty(t, rs.sides, "no resize at native resolution")
}

func TestOptimize_PreResize(t *testing.T) {
	rs := &recordingResizer{}
	o := New(&fakeEncoder{size: areaSize}, rs)

	res, err := o.Optimize(blank(2000, 1000), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(1_000_000)},
		Format:         codec.WebP,
		MaxSize:        1000,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1000}, rs.sides)
	assert.Equal(t, 1000, res.Width)
	assert.Equal(t, 500, res.Height)
	assert.Equal(t, 85, res.Quality)
	assert.Equal(t, codec.WebP, res.Format)
}

func TestOptimize_MaxSizeNotExceededSkipsResize(t *testing.T) {
	rs := &recordingResizer{}
	o := New(&fakeEncoder{size: areaSize}, rs)

	_, err := o.Optimize(blank(300, 200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(1_000_000)},
		Format:         codec.JPEG,
		MaxSize:        1000,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.NoError(t, err)
	assert.Empty(t, rs.sides)
}

func TestOptimize_ExplicitMaxSizeDisablesTiers(t *testing.T) {
	rs := &recordingResizer{}
	o := New(&fakeEncoder{size: areaSize}, rs)

	_, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(100)},
		Format:         codec.JPEG,
		MaxSize:        1200,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompressionExhausted))

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.False(t, ex.Tiered)
	assert.Equal(t, 1200, ex.FinalSize)
	assert.Equal(t, 10, ex.MinQuality)
	assert.Equal(t, []int{1200}, rs.sides, "only the pre-resize, no tiers")
}

func TestOptimize_TierFallback(t *testing.T) {
	enc := &fakeEncoder{size: areaSize}
	rs := &recordingResizer{}
	o := New(enc, rs)

	// 1600x1200 at q10 is 192,000 bytes; 800x600 is 48,000; 600x450 is 27,000.
	res, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(30000)},
		Format:         codec.JPEG,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, 600, res.Tier)
	assert.Equal(t, 11, res.Quality)
	assert.Equal(t, 600, res.Width)
	assert.Equal(t, 450, res.Height)
	assert.Equal(t, enc.calls, res.Probes)
	assert.Equal(t, []int{800, 600}, rs.sides)
	for _, src := range rs.sources {
		assert.Equal(t, image.Rect(0, 0, 1600, 1200), src, "tiers resize the original")
	}
}

func TestOptimize_TierQualityCeiling(t *testing.T) {
	o := New(&fakeEncoder{size: areaSize}, &recordingResizer{})

	// Native fails at q20; 800x600 fits up to q62 but tiers stop at 50.
	res, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(300000)},
		Format:         codec.JPEG,
		InitialQuality: 95,
		MinQuality:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, 800, res.Tier)
	assert.Equal(t, 50, res.Quality)
}

func TestOptimize_TierFloorAboveCeiling(t *testing.T) {
	o := New(&fakeEncoder{size: areaSize}, &recordingResizer{})

	res, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(300000)},
		Format:         codec.JPEG,
		InitialQuality: 95,
		MinQuality:     60,
	})
	require.NoError(t, err)
	assert.Equal(t, 800, res.Tier)
	assert.Equal(t, 60, res.Quality)
}

func TestOptimize_TierCeilingClampedToEncoderDomain(t *testing.T) {
	o := New(&fakeEncoder{size: areaSize}, &recordingResizer{}, WithPolicy(Policy{
		Tiers:           []int{800},
		FallbackCeiling: 150,
		Step:            1,
	}))

	// Native fails at q30; 800x600 fits every quality up to 104.
	res, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(500000)},
		Format:         codec.JPEG,
		InitialQuality: 85,
		MinQuality:     30,
	})
	require.NoError(t, err)
	assert.Equal(t, 800, res.Tier)
	assert.Equal(t, codec.MaxQuality, res.Quality)
}

func TestOptimize_TiersExhausted(t *testing.T) {
	rs := &recordingResizer{}
	o := New(&fakeEncoder{size: areaSize}, rs)

	_, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(10)},
		Format:         codec.JPEG,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.Error(t, err)

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.True(t, ex.Tiered)
	assert.Equal(t, 400, ex.FinalSize)
	assert.Equal(t, 10, ex.MinQuality)
	assert.Greater(t, ex.Probes, 0)
	assert.Equal(t, []int{800, 600, 400}, rs.sides)
	assert.Contains(t, ex.Error(), "400px")
}

func TestOptimize_CustomPolicy(t *testing.T) {
	rs := &recordingResizer{}
	o := New(&fakeEncoder{size: areaSize}, rs, WithPolicy(Policy{
		Tiers:           []int{1000, 100},
		FallbackCeiling: 30,
		Step:            1,
	}))

	res, err := o.Optimize(blank(1600, 1200), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(2000)},
		Format:         codec.JPEG,
		InitialQuality: 85,
		MinQuality:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Tier)
	assert.Equal(t, 26, res.Quality) // 100x75 at q26 is 1,950 bytes
	assert.Equal(t, []int{1000, 100}, rs.sides)
}

func TestOptimize_EncoderErrorPropagates(t *testing.T) {
	boom := errors.New("codec blew up")
	o := New(&fakeEncoder{err: boom}, &recordingResizer{})

	_, err := o.Optimize(blank(100, 100), Request{
		Constraints:    limits.Constraints{MaxBinaryBytes: limits.Int(100)},
		Format:         codec.JPEG,
		InitialQuality: 85,
		MinQuality:     10,
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrCompressionExhausted))
}

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x * y) % 256), A: 255})
		}
	}
	return img
}

func TestOptimize_RealCodecsRespectCeilings(t *testing.T) {
	img := gradient(1200, 900)
	o := New(codec.NewEncoder(), codec.LanczosResizer{})

	tests := []struct {
		name string
		c    limits.Constraints
		f    codec.Format
	}{
		{"jpeg bytes", limits.Constraints{MaxBinaryBytes: limits.Int(60_000)}, codec.JPEG},
		{"jpeg base64", limits.Constraints{MaxBase64Chars: limits.Int(40_000)}, codec.JPEG},
		{"webp both", limits.Constraints{MaxBinaryBytes: limits.Int(30_000), MaxBase64Chars: limits.Int(38_000)}, codec.WebP},
		{"impossible", limits.Constraints{MaxBinaryBytes: limits.Int(50)}, codec.JPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Optimize(img, Request{Constraints: tt.c, Format: tt.f, InitialQuality: 90, MinQuality: 5})
			if err != nil {
				assert.True(t, errors.Is(err, ErrCompressionExhausted), "err = %v", err)
				return
			}
			if tt.c.MaxBinaryBytes != nil {
				assert.LessOrEqual(t, len(res.Data), *tt.c.MaxBinaryBytes)
			}
			if tt.c.MaxBase64Chars != nil {
				assert.LessOrEqual(t, len(res.Base64()), *tt.c.MaxBase64Chars)
			}
		})
	}

	assert.Equal(t, 1200, img.Bounds().Dx(), "original untouched")
}

func TestResult_Outputs(t *testing.T) {
	res := &Result{Data: []byte("hello image"), Format: codec.WebP}

	decoded, err := base64.StdEncoding.DecodeString(res.Base64())
	require.NoError(t, err)
	assert.Equal(t, res.Data, decoded)
	assert.Equal(t, len(res.Base64()), res.Base64Length())
	assert.True(t, strings.HasPrefix(res.DataURI(), "data:image/webp;base64,"))
	assert.Equal(t, res.Data, res.Bytes())
}
