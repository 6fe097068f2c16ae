package hcl

import "github.com/hashicorp/hcl/v2"

// variablesRoot is decoded first so that the rest of every file can be
// evaluated against `var.*`.
type variablesRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type variableBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// sessionRoot holds every other top-level block of a session file.
type sessionRoot struct {
	Devices []*deviceBlock `hcl:"device,block"`
	Paths   []*pathBlock   `hcl:"signal_path,block"`
	Scan    *scanBlock     `hcl:"scan,block"`
	Capture *captureBlock  `hcl:"capture,block"`
}

type deviceBlock struct {
	Name       string `hcl:"name,label"`
	URI        string `hcl:"uri"`
	Device     string `hcl:"device,optional"`
	BufferSize *int   `hcl:"buffer_size,optional"`
}

type pathBlock struct {
	Name     string        `hcl:"name,label"`
	Enabled  *bool         `hcl:"enabled,optional"`
	Register *bool         `hcl:"register,optional"`
	Proxies  []*proxyBlock `hcl:"proxy,block"`
}

// proxyBlock keeps its arguments raw; they are decoded against the factory
// of its type at build time.
type proxyBlock struct {
	Type string   `hcl:"type,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type scanBlock struct {
	Period  string   `hcl:"period,optional"`
	Schemes []string `hcl:"schemes,optional"`
	Hosts   []string `hcl:"hosts,optional"`
}

type captureBlock struct {
	Samples int `hcl:"samples"`
}
