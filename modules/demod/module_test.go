package demod_test

import (
	"math"
	"testing"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/testutil"
	"github.com/specialistvlad/scopyflow/modules/channel"
	"github.com/specialistvlad/scopyflow/modules/demod"
	"github.com/specialistvlad/scopyflow/modules/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modules() []registry.Module {
	return []registry.Module{&generator.Module{}, &channel.Module{}, &demod.Module{}}
}

func TestAMDemod(t *testing.T) {
	t.Parallel()

	testutil.RunProxyTests(t, "am_demod", modules(), []testutil.ProxyTestCase{
		{
			Name:     "Success: envelope of the I/Q pair",
			Preamble: `device "adc" { uri = "sim:bench" }`,
			Upstream: `
				proxy "complex_channel" "iq" {
					device = "adc"
					i      = "voltage0"
					q      = "voltage1"
				}
			`,
			Validate: func(t *testing.T, px signalpath.Proxy, out []float32) {
				_, ok := px.(*signalpath.AMDemod)
				require.True(t, ok, "expected *signalpath.AMDemod, got %T", px)
				require.Len(t, out, 8)
				want := math.Hypot(0.5, -0.25)
				for i, v := range out {
					assert.InDelta(t, want, v, 1e-6, "sample %d", i)
				}
			},
		},
		{
			Name:        "Failure: takes no arguments",
			HCL:         `gain = 2`,
			ExpectErr:   true,
			ErrContains: "unsupported argument(s): gain",
		},
	})
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	testutil.RunProxyTests(t, "throttle", modules(), []testutil.ProxyTestCase{
		{
			Name: "Success: passes samples through",
			Upstream: `
				proxy "signal_source" "src" {
					waveform  = "const"
					amplitude = 5
				}
			`,
			HCL: `rate = 100000`,
			Validate: func(t *testing.T, px signalpath.Proxy, out []float32) {
				_, ok := px.(*signalpath.Throttle)
				require.True(t, ok, "expected *signalpath.Throttle, got %T", px)
				assert.Equal(t, testutil.Repeat(5, 8), out)
			},
		},
		{
			Name:        "Failure: non-positive rate",
			HCL:         `rate = 0`,
			ExpectErr:   true,
			ErrContains: "throttle x: rate must be positive, got 0",
		},
		{
			Name:        "Failure: missing rate",
			ExpectErr:   true,
			ErrContains: `missing required argument "rate"`,
		},
	})
}
