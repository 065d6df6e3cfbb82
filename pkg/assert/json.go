// Package assert holds test helpers for rendered mesh resources.
package assert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/tidwall/gjson"
)

// JSONHasSubstrings returns a subtest checking that obj contains every sub verbatim.
func JSONHasSubstrings(obj json.RawMessage, subs ...string) func(*testing.T) {
	return func(t *testing.T) {
		t.Helper()
		if len(obj) == 0 {
			t.Fatal("json is empty")
		}
		for _, sub := range subs {
			if !bytes.Contains(obj, json.RawMessage(sub)) {
				t.Errorf("did not contain substring '%s'", sub)
			}
		}
		if t.Failed() {
			prettyPrintJSON(obj)
		}
	}
}

// JSONPathsEqual returns a subtest checking that each gjson path in want resolves to the
// given raw JSON value, e.g. {"httpRoute.match.prefix": `"/"`}.
func JSONPathsEqual(obj json.RawMessage, want map[string]string) func(*testing.T) {
	return func(t *testing.T) {
		t.Helper()
		for path, value := range want {
			got := gjson.GetBytes(obj, path)
			if !got.Exists() {
				t.Errorf("path %s does not exist", path)
				continue
			}
			if got.Raw != value {
				t.Errorf("path %s: expected %s, got %s", path, value, got.Raw)
			}
		}
		if t.Failed() {
			prettyPrintJSON(obj)
		}
	}
}

func prettyPrintJSON(raws ...json.RawMessage) {
	for _, raw := range raws {
		b := new(bytes.Buffer)
		json.Indent(b, raw, "", "\t")
		fmt.Println(b.String())
	}
}
