package emit

import (
	"encoding/json"
	"io"
)

// WriteJSON marshals doc and writes it to w, indented two spaces to match
// this repo's other structured output. Determinism (orig §5) falls out of
// Document's field order and the fact C5 never reorders its inputs.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
