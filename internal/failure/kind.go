// Package failure defines the closed set of failure kinds every fallible
// operation of the analyzer resolves to, the conversions from foreign error
// shapes into those kinds, and the Result wrapper used to carry outcomes
// across goroutine and channel boundaries.
//
// The package classifies and propagates only. It never logs, retries or
// terminates the process; those decisions belong to the caller.
package failure

import "fmt"

// Kind identifies one failure domain.
type Kind int

// The kind set is closed. Add a kind only together with its entry in
// kindMessages and kindNames; the fixed-size tables make a missing entry a
// compile error.
const (
	// KindFileIO indicates a filesystem read, open or walk failure.
	KindFileIO Kind = iota
	// KindPathPrefix indicates that a known root could not be stripped from a path.
	KindPathPrefix
	// KindFuncSpaceNaming indicates that a parsed construct has no usable scope name.
	KindFuncSpaceNaming
	// KindJSONDecode indicates that a JSON document failed to decode.
	KindJSONDecode
	// KindConversion indicates that a generic value does not have the expected type.
	KindConversion
	// KindMapLookup indicates that a required key is absent.
	KindMapLookup
	// KindJSONFromString indicates that JSON could not be rebuilt from an in-memory buffer.
	KindJSONFromString
	// KindMetricsCompute indicates that metric aggregation over a source tree failed.
	KindMetricsCompute
	// KindLanguageDetect indicates that the language of a file is unknown.
	KindLanguageDetect
	// KindCSVWrite indicates that writing a CSV report row failed.
	KindCSVWrite
	// KindConcurrency indicates that a worker terminated abnormally.
	KindConcurrency
	// KindUnsupportedFormat indicates a coverage report in neither supported schema.
	KindUnsupportedFormat
	// KindPathToString indicates a path that cannot be represented as text.
	KindPathToString
	// KindOutputPath indicates a rejected output path. It carries a static explanation.
	KindOutputPath
	// KindOptionUnwrap indicates that a value expected to be present was absent.
	KindOptionUnwrap
	// KindLockPoisoned indicates a guard whose previous holder panicked.
	KindLockPoisoned
	// KindChannelSend indicates a send to a channel whose receiver is gone.
	KindChannelSend
	// KindTemplateRender indicates an HTML template parse or execution failure.
	KindTemplateRender

	numKinds
)

var kindMessages = [numKinds]string{
	KindFileIO:            "Error while reading Files from project folder",
	KindPathPrefix:        "Error while stripping the prefix",
	KindFuncSpaceNaming:   "Error while parsing function space name",
	KindJSONDecode:        "Error while reading json",
	KindConversion:        "Error while converting JSON value to a type",
	KindMapLookup:         "Error while getting value from hashmap",
	KindJSONFromString:    "Failing reading JSON from string",
	KindMetricsCompute:    "Error while computing Metrics",
	KindLanguageDetect:    "Error while guessing language",
	KindCSVWrite:          "Error while writing on csv",
	KindConcurrency:       "Error during concurrency",
	KindUnsupportedFormat: "Json Type is not supported! Only coveralls and covdir are supported.",
	KindPathToString:      "Error while converting path to string",
	KindOutputPath:        "", // rendered from the carried explanation
	KindOptionUnwrap:      "Error while dereferencing an absent optional value",
	KindLockPoisoned:      "Error while locking mutex",
	KindChannelSend:       "Error while sending job via sender",
	KindTemplateRender:    "Error while creating HTML file",
}

var kindNames = [numKinds]string{
	KindFileIO:            "file_io",
	KindPathPrefix:        "path_prefix",
	KindFuncSpaceNaming:   "func_space_naming",
	KindJSONDecode:        "json_decode",
	KindConversion:        "conversion",
	KindMapLookup:         "map_lookup",
	KindJSONFromString:    "json_from_string",
	KindMetricsCompute:    "metrics_compute",
	KindLanguageDetect:    "language_detect",
	KindCSVWrite:          "csv_write",
	KindConcurrency:       "concurrency",
	KindUnsupportedFormat: "unsupported_format",
	KindPathToString:      "path_to_string",
	KindOutputPath:        "output_path",
	KindOptionUnwrap:      "option_unwrap",
	KindLockPoisoned:      "lock_poisoned",
	KindChannelSend:       "channel_send",
	KindTemplateRender:    "template_render",
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// String returns the stable snake_case identifier of the kind.
func (k Kind) String() string {
	if !k.Valid() {
		return "invalid"
	}
	return kindNames[k]
}

// MarshalText encodes the kind as its identifier.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid failure kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// Message returns the fixed message template bound to the kind.
func (k Kind) Message() string {
	if !k.Valid() {
		return ""
	}
	return kindMessages[k]
}

// Kinds returns every declared kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := range numKinds {
		kinds = append(kinds, k)
	}
	return kinds
}
