package result

// Match is a single ranked search hit.
type Match struct {
	id         string
	similarity float64
}

// New creates a match.
func New(id string, similarity float64) Match {
	return Match{id: id, similarity: similarity}
}

// ID returns the candidate identifier.
func (m *Match) ID() string { return m.id }

// Similarity returns the similarity score in [0, 1].
func (m *Match) Similarity() float64 { return m.similarity }
