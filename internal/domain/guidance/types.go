// Package guidance defines the structured answer contract shared by the HTTP
// surface, the upstream providers, and the session store.
package guidance

// Scripture is a single citation inside an interpretation.
type Scripture struct {
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Interpretation is one explanatory passage with zero or more citations.
type Interpretation struct {
	View       string      `json:"view"`
	Scriptures []Scripture `json:"scriptures"`
}

// Response is the normalized answer returned for a question.
type Response struct {
	Interpretations []Interpretation `json:"interpretations"`
}

// Primary returns the canonical interpretation. Policy: the first element of
// the interpretation list is the primary one; additional perspectives are
// carried through untouched for future use.
func (r *Response) Primary() (Interpretation, bool) {
	if r == nil || len(r.Interpretations) == 0 {
		return Interpretation{}, false
	}
	return r.Interpretations[0], true
}

// PrimaryScripture returns the first citation of the primary interpretation.
func (r *Response) PrimaryScripture() (Scripture, bool) {
	primary, ok := r.Primary()
	if !ok || len(primary.Scriptures) == 0 {
		return Scripture{}, false
	}
	return primary.Scriptures[0], true
}
