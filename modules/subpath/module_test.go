package subpath_test

import (
	"testing"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/testutil"
	"github.com/specialistvlad/scopyflow/modules/generator"
	"github.com/specialistvlad/scopyflow/modules/scaleoffset"
	"github.com/specialistvlad/scopyflow/modules/subpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basePath = `
	signal_path "base" {
		register = false
		proxy "signal_source" "src" {
			waveform  = "const"
			amplitude = 2
		}
	}
`

func TestPath(t *testing.T) {
	t.Parallel()
	modules := []registry.Module{&generator.Module{}, &scaleoffset.Module{}, &subpath.Module{}}

	testutil.RunProxyTests(t, "path", modules, []testutil.ProxyTestCase{
		{
			Name:     "Success: nested path feeds the enclosing one",
			Preamble: basePath,
			HCL:      `path = "base"`,
			Validate: func(t *testing.T, px signalpath.Proxy, out []float32) {
				p, ok := px.(*signalpath.Path)
				require.True(t, ok, "expected *signalpath.Path, got %T", px)
				assert.Equal(t, "base", p.Name())
				assert.True(t, p.Live())
				assert.Equal(t, testutil.Repeat(2, 8), out)
			},
		},
		{
			Name: "Success: nested path continues an upstream chain",
			Preamble: `
				signal_path "gain" {
					register = false
					proxy "scale_offset" "double" {
						scale = 2
					}
				}
			`,
			Upstream: `
				proxy "signal_source" "src" {
					waveform  = "const"
					amplitude = 3
				}
			`,
			HCL: `path = "gain"`,
			Validate: func(t *testing.T, _ signalpath.Proxy, out []float32) {
				assert.Equal(t, testutil.Repeat(6, 8), out)
			},
		},
		{
			Name:        "Failure: undeclared path",
			HCL:         `path = "ghost"`,
			ExpectErr:   true,
			ErrContains: `path x: signal_path "ghost" is not declared`,
		},
		{
			Name:        "Failure: enclosing path",
			HCL:         `path = "p"`,
			ExpectErr:   true,
			ErrContains: "p includes itself",
		},
	})
}
