package filter_test

import (
	"testing"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/testutil"
	"github.com/specialistvlad/scopyflow/modules/filter"
	"github.com/specialistvlad/scopyflow/modules/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitSource = `
	proxy "signal_source" "src" {
		waveform  = "const"
		amplitude = 1
	}
`

func modules() []registry.Module {
	return []registry.Module{&generator.Module{}, &filter.Module{}}
}

func TestFIR(t *testing.T) {
	t.Parallel()

	testutil.RunProxyTests(t, "fir", modules(), []testutil.ProxyTestCase{
		{
			Name:     "Success: moving average settles after the first sample",
			Upstream: unitSource,
			HCL:      `taps = [0.5, 0.5]`,
			Samples:  4,
			Validate: func(t *testing.T, px signalpath.Proxy, out []float32) {
				_, ok := px.(*signalpath.FIR)
				require.True(t, ok, "expected *signalpath.FIR, got %T", px)
				assert.Equal(t, []float32{0.5, 1, 1, 1}, out)
			},
		},
		{
			Name:     "Success: single tap is a gain",
			Upstream: unitSource,
			HCL:      `taps = [3]`,
			Validate: func(t *testing.T, _ signalpath.Proxy, out []float32) {
				assert.Equal(t, testutil.Repeat(3, 8), out)
			},
		},
		{
			Name:        "Failure: empty taps",
			Upstream:    unitSource,
			HCL:         `taps = []`,
			ExpectErr:   true,
			ErrContains: "fir x: blocks: invalid filter taps",
		},
		{
			Name:        "Failure: missing taps",
			Upstream:    unitSource,
			ExpectErr:   true,
			ErrContains: `missing required argument "taps"`,
		},
	})
}

func TestIIR(t *testing.T) {
	t.Parallel()

	testutil.RunProxyTests(t, "iir", modules(), []testutil.ProxyTestCase{
		{
			Name:     "Success: first order feedback",
			Upstream: unitSource,
			HCL: `
				b = [1]
				a = [1, -0.5]
			`,
			Samples: 4,
			Validate: func(t *testing.T, px signalpath.Proxy, out []float32) {
				_, ok := px.(*signalpath.IIR)
				require.True(t, ok, "expected *signalpath.IIR, got %T", px)
				assert.Equal(t, []float32{1, 1.5, 1.75, 1.875}, out)
			},
		},
		{
			Name:     "Success: coefficients are normalized by a[0]",
			Upstream: unitSource,
			HCL: `
				b = [4]
				a = [2]
			`,
			Validate: func(t *testing.T, _ signalpath.Proxy, out []float32) {
				assert.Equal(t, testutil.Repeat(2, 8), out)
			},
		},
		{
			Name:     "Failure: zero leading feedback coefficient",
			Upstream: unitSource,
			HCL: `
				b = [1]
				a = [0, 1]
			`,
			ExpectErr:   true,
			ErrContains: "iir x: blocks: invalid filter taps",
		},
	})
}
