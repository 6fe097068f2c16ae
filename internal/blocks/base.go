package blocks

import "github.com/specialistvlad/scopyflow/internal/flowgraph"

// DefaultChunk is the number of items a source produces per Work call.
const DefaultChunk = 256

type base struct {
	name string
	sig  flowgraph.Signature
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Signature() flowgraph.Signature {
	return b.sig
}

func ports(n, size int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = size
	}
	return p
}
