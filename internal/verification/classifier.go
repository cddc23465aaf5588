package verification

import (
	"encoding/json"
	"strings"
)

// Classification is the verdict shown to the user.
type Classification string

const (
	Success      Classification = "success"
	Failure      Classification = "failure"
	Inconclusive Classification = "inconclusive"
)

// Cause names the rule that produced a non-success outcome.
type Cause string

const (
	CauseNone               Cause = ""
	CauseNoData             Cause = "no_data"
	CauseKnownProviderError Cause = "known_provider_error"
	CauseInvalidStatus      Cause = "invalid_status"
	CauseUnrecognizedShape  Cause = "unrecognized_shape"
)

// Reasons attached to failures without a provider message.
const (
	ReasonNoData         = "no data"
	ReasonProviderError  = "provider reported an error"
	ReasonInvalidStatus  = "record status is INVALID"
	ReasonNotVerifiable  = "could not be verified"
	successMessageMarker = "verified successfully"
	providerSuccessCode  = "1000"
	statusInvalid        = "INVALID"
)

var knownErrorCodes = map[string]struct{}{
	"1001": {}, "1002": {}, "1003": {}, "1004": {}, "1005": {}, "1006": {},
	"404": {}, "400": {},
}

var successStatuses = map[string]struct{}{
	"VALID":  {},
	"ACTIVE": {},
}

// Outcome is the classified result of one provider call.
type Outcome struct {
	Classification Classification  `json:"classification"`
	Reason         string          `json:"reason,omitempty"`
	Cause          Cause           `json:"cause,omitempty"`
	ProviderCode   string          `json:"provider_code,omitempty"`
	RawEnvelope    json.RawMessage `json:"raw_envelope,omitempty"`
}

func (o Outcome) IsSuccess() bool {
	return o.Classification == Success
}

// Classifier applies the ordered rule list. The zero value is the default
// fail-closed classifier.
type Classifier struct {
	strict bool
}

type ClassifierOption func(*Classifier)

// WithStrict reports payloads no rule matched as Inconclusive instead of
// Failure.
func WithStrict() ClassifierOption {
	return func(c *Classifier) {
		c.strict = true
	}
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify evaluates env with the default classifier.
func Classify(env Envelope) Outcome {
	var c Classifier
	return c.Classify(env)
}

// Classify walks the rules in order and stops at the first match. Error codes
// and INVALID status are checked before any success signal, so a payload that
// carries both is a failure.
func (c *Classifier) Classify(env Envelope) Outcome {
	out := Outcome{RawEnvelope: env.Raw, ProviderCode: env.Data.Code}

	if env.Shape == ShapeAbsent {
		return out.fail(CauseNoData, ReasonNoData)
	}

	d := env.Data
	if d.HasCode {
		if _, known := knownErrorCodes[d.Code]; known {
			return out.fail(CauseKnownProviderError, messageOr(d, ReasonProviderError))
		}
	}
	if d.HasStatus && d.Status == statusInvalid {
		return out.fail(CauseInvalidStatus, messageOr(d, ReasonInvalidStatus))
	}
	if env.Success {
		return out.succeed()
	}
	if d.HasMessage && strings.Contains(strings.ToLower(d.Message), successMessageMarker) {
		return out.succeed()
	}
	if _, ok := successStatuses[d.Status]; ok && d.HasStatus {
		return out.succeed()
	}
	if d.Verified || d.AccountExists {
		return out.succeed()
	}
	if d.HasCode && d.Code == providerSuccessCode {
		return out.succeed()
	}

	if c.strict {
		out.Classification = Inconclusive
		out.Cause = CauseUnrecognizedShape
		out.Reason = ReasonNotVerifiable
		return out
	}
	return out.fail(CauseUnrecognizedShape, ReasonNotVerifiable)
}

func (o Outcome) succeed() Outcome {
	o.Classification = Success
	return o
}

func (o Outcome) fail(cause Cause, reason string) Outcome {
	o.Classification = Failure
	o.Cause = cause
	o.Reason = reason
	return o
}

func messageOr(d Data, fallback string) string {
	if msg := strings.TrimSpace(d.Message); d.HasMessage && msg != "" {
		return msg
	}
	return fallback
}
