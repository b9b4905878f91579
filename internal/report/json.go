package report

import (
	"encoding/json"
	"io"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
)

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *analyzer.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return failure.FromIO(err)
	}
	return nil
}
