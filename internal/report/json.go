package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
)

// WriteJSON writes the evaluations as indented JSON.
func WriteJSON(w io.Writer, evals []checker.Evaluation) error {
	if evals == nil {
		evals = []checker.Evaluation{}
	}
	data, err := json.MarshalIndent(evals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evaluations: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
