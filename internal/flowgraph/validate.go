package flowgraph

import "fmt"

// validate checks that every input port of every connected block has an
// upstream and that the connections are acyclic.
func validate(edges []Edge) error {
	blocks := blocksOf(edges)

	connected := make(map[Endpoint]bool, len(edges))
	dependents := make(map[Block][]Block)
	for _, e := range edges {
		connected[e.Dst] = true
		dependents[e.Src.Block] = append(dependents[e.Src.Block], e.Dst.Block)
	}

	for _, b := range blocks {
		for port := range b.Signature().Inputs {
			if !connected[Endpoint{Block: b, Port: port}] {
				return fmt.Errorf("%w: %s:%d", ErrUnconnectedInput, b.Name(), port)
			}
		}
	}

	// Depth-first search with permanent and temporary marks.
	permanent := make(map[Block]bool)
	temporary := make(map[Block]bool)

	var visit func(b Block) error
	visit = func(b Block) error {
		if permanent[b] {
			return nil
		}
		if temporary[b] {
			return fmt.Errorf("%w: involving block '%s'", ErrCycle, b.Name())
		}
		temporary[b] = true
		for _, d := range dependents[b] {
			if err := visit(d); err != nil {
				return err
			}
		}
		delete(temporary, b)
		permanent[b] = true
		return nil
	}

	for _, b := range blocks {
		if err := visit(b); err != nil {
			return err
		}
	}
	return nil
}
