package ember

// Failure marker field names used by MergeResults.
const (
	markerFailed  = "failed"
	markerKind    = "kind"
	markerMessage = "message"
)

// FailureMarker builds the structured payload stored under an output
// name whose handler failed or timed out.
func FailureMarker(f Failure) Payload {
	return NewPayload(
		Field{Name: markerFailed, Value: Bool(true)},
		Field{Name: markerKind, Value: String(f.Kind)},
		Field{Name: markerMessage, Value: String(f.Message)},
	)
}

// IsFailureMarker reports whether a value is a failure marker payload.
func IsFailureMarker(v Value) bool {
	p, err := v.AsPayload()
	if err != nil {
		return false
	}
	failed, ok := p.Get(markerFailed)
	if !ok {
		return false
	}
	b, err := failed.AsBool()
	return err == nil && b
}

// MergeResults produces a new payload containing every field of the
// original plus one field per group entry: the handler's value on
// success, or a failure marker otherwise. Fields are appended in
// declaration order; the original payload is never mutated.
//
// An output name colliding with an existing field is a
// ReservedKeyConflictError unless allowOverwrite is set; overwriting
// is off by default to prevent silent data loss.
func MergeResults(original Payload, outcome *ExecutionOutcome, allowOverwrite bool) (Payload, error) {
	if !allowOverwrite {
		for _, r := range outcome.Results {
			if original.Has(r.Output) {
				return Payload{}, &ReservedKeyConflictError{Key: r.Output}
			}
		}
	}

	merged := original
	for _, r := range outcome.Results {
		if r.Failed() {
			merged = merged.With(r.Output, PayloadValue(FailureMarker(*r.Failure)))
			continue
		}
		merged = merged.With(r.Output, r.Value)
	}
	return merged, nil
}
