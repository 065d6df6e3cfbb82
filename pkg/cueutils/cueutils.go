package cueutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"github.com/go-logr/logr"
	"github.com/kylelemons/godebug/diff"
)

// Extract validates that v is concrete and decodes it into a Go struct with JSON tags.
func Extract(v cue.Value, s interface{}) error {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, s)
}

// LogError logs errors that may or may not contain a list of cue/errors.Error.
// If the error provided is not a cue/errors.Error, a plain error is logged.
func LogError(logger logr.Logger, err error) {
	switch v := err.(type) {
	case errors.Error:
		for _, e := range errors.Errors(v) {
			logger.Error(e, e.Position().String())
		}
	default:
		logger.Error(v, "")
	}
}

// Diff returns a line-by-line diff between two renderings.
// Added lines are prefixed with +, deleted lines with -. Identical inputs yield "".
func Diff(a, b string) string {
	aLines := strings.Split(strings.TrimRight(a, "\n"), "\n")
	bLines := strings.Split(strings.TrimRight(b, "\n"), "\n")

	chunks := diff.DiffChunks(aLines, bLines)

	buf := new(bytes.Buffer)
	for _, c := range chunks {
		for _, d := range c.Added {
			fmt.Fprintf(buf, "+%s\n", d)
		}
		for _, d := range c.Deleted {
			fmt.Fprintf(buf, "-%s\n", d)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}
