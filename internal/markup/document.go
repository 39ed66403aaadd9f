package markup

// DocumentAnnotations is the union of all per-sentence context graphs for
// one report. Each graph keeps its sentence-local offsets; edges never cross
// sentence boundaries, so no re-basing happens on aggregation.
type DocumentAnnotations struct {
	Sentences []*ContextGraph
}

// NewDocumentAnnotations returns an empty per-report annotation set
func NewDocumentAnnotations() *DocumentAnnotations {
	return &DocumentAnnotations{}
}

// Add appends one sentence graph in report order. Empty graphs are kept;
// they contribute nothing downstream but preserve sentence indexing.
func (d *DocumentAnnotations) Add(g *ContextGraph) {
	d.Sentences = append(d.Sentences, g)
}
