package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/builder"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/hcl"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/tap"
	"github.com/specialistvlad/scopyflow/internal/topblock"
	"github.com/stretchr/testify/require"
)

// ProxyTestCase defines a single scenario for a proxy type.
type ProxyTestCase struct {
	Name string
	// HCL is the body of the `proxy "<type>" "x" { ... }` block under test.
	// It can be written as a readable, indented multi-line string.
	HCL string
	// Upstream is inserted in the path before the proxy under test, as
	// complete proxy blocks.
	Upstream string
	// Preamble holds extra top-level blocks, such as devices or other paths.
	Preamble string
	// Samples captured from the path; defaults to 8.
	Samples int
	// ExpectErr should be true if building the session must fail.
	ExpectErr bool
	// ErrContains is a substring that must appear in the error message if
	// ExpectErr is true.
	ErrContains string
	// Validate receives the built proxy and what the path produced.
	Validate func(t *testing.T, px signalpath.Proxy, out []float32)
}

// RunProxyTests builds, for every case, a session holding the path
// `signal_path "p" { <Upstream> proxy "<typ>" "x" { <HCL> } }`, runs it
// until the capture is full and hands the result to Validate. Devices come
// from SimDevices().
func RunProxyTests(t *testing.T, typ string, modules []registry.Module, cases []ProxyTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			src := fmt.Sprintf("%s\nsignal_path \"p\" {\n%s\nproxy %q \"x\" {\n%s\n}\n}\n",
				unindent(tc.Preamble), unindent(tc.Upstream), typ, unindent(tc.HCL))

			px, out, err := runProxy(t, src, modules, tc.Samples)

			if tc.ExpectErr {
				require.Error(t, err, "Expected a build error, but got none")
				if tc.ErrContains != "" {
					require.Contains(t, err.Error(), tc.ErrContains, "Error message did not contain the expected text")
				}
				return
			}
			require.NoError(t, err, "Expected a successful build, but got an error")
			if tc.Validate != nil {
				tc.Validate(t, px, out)
			}
		})
	}
}

func runProxy(t *testing.T, src string, modules []registry.Module, samples int) (signalpath.Proxy, []float32, error) {
	t.Helper()
	ctx := context.Background()
	if samples <= 0 {
		samples = 8
	}

	path := filepath.Join(t.TempDir(), "session.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	model, conv, err := hcl.NewLoader(nil).Load(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	s, err := builder.Build(ctx, model, registry.New(modules...), conv, SimDevices())
	if err != nil {
		return nil, nil, err
	}
	t.Cleanup(func() { _ = s.Close() })

	p, ok := s.SignalPath("p")
	require.True(t, ok)
	proxies := p.Proxies()
	px := proxies[len(proxies)-1]

	m := topblock.New(ctx, "proxy-test")
	capture := tap.NewCapture(samples)
	defer tap.New(ctx, m, capture).Close()
	s.Register(m)

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.Run(runCtx))

	var out []float32
	if data := capture.Data(); len(data) > 0 {
		out = data[0]
	}
	return px, out, nil
}

// Repeat returns n copies of v.
func Repeat(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func constChannel(id string, code float64) device.SimChannel {
	return device.SimChannel{
		ID:    id,
		Scale: 2048,
		Wave:  blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: code},
	}
}

// unindent removes common leading whitespace from a multi-line string,
// allowing for readable, indented HCL snippets in Go tests.
func unindent(s string) string {
	lines := strings.Split(s, "\n")

	// Remove leading/trailing empty lines that are common with multi-line literals
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	// Find the minimum indentation of non-empty lines
	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	var b strings.Builder
	for i, line := range lines {
		if len(line) >= minIndent {
			b.WriteString(line[minIndent:])
		} else {
			b.WriteString(strings.TrimSpace(line))
		}
		if i < len(lines)-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}
