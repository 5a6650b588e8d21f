package classifier

import "errors"

// ErrModelUnavailable marks a model that is missing on disk or failed to
// deserialize. Callers are expected to degrade to rule-only evaluation
// instead of propagating it as a hard failure.
var ErrModelUnavailable = errors.New("risk model unavailable")
