package coa

// Snapshot is a deep copy of a document's state, captured for external
// undo/redo. A snapshot shares nothing with the live graph.
type Snapshot struct {
	pattern string
	colors  [3]Color
	layers  []*Layer
	active  string
}

// Snapshot captures the full document state.
func (d *Document) Snapshot() *Snapshot {
	s := &Snapshot{
		pattern: d.pattern,
		colors:  d.colors,
		active:  d.active,
	}
	for _, id := range d.order {
		s.layers = append(s.layers, d.layers[id].clone(false))
	}
	return s
}

// Restore replaces the document state wholesale with the snapshot. The
// snapshot stays valid for further restores.
func (d *Document) Restore(s *Snapshot) {
	d.pattern = s.pattern
	d.colors = s.colors
	d.active = s.active

	d.layers = make(map[string]*Layer, len(s.layers))
	d.order = d.order[:0]
	for _, l := range s.layers {
		live := l.clone(false)
		d.layers[live.ID()] = live
		d.order = append(d.order, live.ID())
	}

	if _, ok := d.layers[d.active]; !ok {
		d.active = ""
	}
	d.log.Debug().Int("layers", len(d.order)).Msg("snapshot restored")
}
