package annotate

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNothingExtractable is returned by Extract when neither the
	// structured pass nor the fallback pass produced any annotation.
	ErrNothingExtractable = errors.New("no annotations could be extracted from the document")

	// ErrNoRecognizer is returned when an operation needs text recognition
	// and the Extractor was built without it.
	ErrNoRecognizer = errors.New("text recognition is not available")
)

// PageFailure reports a page that the fallback pass had to leave out.
type PageFailure struct {
	Page int
	Err  error
}

func (f PageFailure) Error() string {
	return fmt.Sprintf("page %d: %v", f.Page, f.Err)
}

func (f PageFailure) Unwrap() error {
	return f.Err
}

func (f PageFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Page  int    `json:"page"`
		Error string `json:"error"`
	}{f.Page, f.Err.Error()})
}
