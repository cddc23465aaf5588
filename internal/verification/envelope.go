// Package verification turns the loosely structured payload returned by the
// upstream KYC provider into a success or failure outcome.
//
// DecodeEnvelope is the only place that looks at raw JSON. Classify operates
// over the decoded Envelope and performs no I/O.
package verification

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Shape tags what DecodeEnvelope found in the payload.
type Shape int

const (
	// ShapeAbsent covers nil or non-JSON input, non-object payloads and
	// payloads without a usable data field.
	ShapeAbsent Shape = iota
	// ShapeRecognized means data carries at least one field the classifier
	// understands.
	ShapeRecognized
	// ShapeUnrecognized means data is present but none of its fields are known.
	ShapeUnrecognized
)

func (s Shape) String() string {
	switch s {
	case ShapeRecognized:
		return "recognized"
	case ShapeUnrecognized:
		return "unrecognized"
	default:
		return "absent"
	}
}

// Data holds the typed view of envelope.data. Has* flags distinguish a field
// that was sent from its zero value.
type Data struct {
	Code          string
	HasCode       bool
	Status        string
	HasStatus     bool
	Message       string
	HasMessage    bool
	Verified      bool
	HasVerified   bool
	AccountExists bool
	HasAccount    bool
}

func (d Data) recognized() bool {
	return d.HasCode || d.HasStatus || d.HasMessage || d.HasVerified || d.HasAccount
}

// Envelope is the decoded provider payload.
type Envelope struct {
	Shape Shape
	// Success is true only when the top-level success field is the JSON
	// literal true.
	Success bool
	Data    Data
	Raw     json.RawMessage
}

// DecodeEnvelope never fails; malformed input decodes to ShapeAbsent.
func DecodeEnvelope(raw []byte) Envelope {
	env := Envelope{Shape: ShapeAbsent}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 {
		env.Raw = append(json.RawMessage(nil), trimmed...)
	}

	var top map[string]json.RawMessage
	if len(trimmed) == 0 || json.Unmarshal(trimmed, &top) != nil || top == nil {
		return env
	}

	if rawSuccess, ok := top["success"]; ok {
		var success bool
		if json.Unmarshal(rawSuccess, &success) == nil {
			env.Success = success
		}
	}

	rawData, ok := top["data"]
	if !ok || falsy(rawData) {
		return env
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(rawData, &fields) != nil || fields == nil {
		env.Shape = ShapeUnrecognized
		return env
	}

	env.Data = decodeData(fields)
	if env.Data.recognized() {
		env.Shape = ShapeRecognized
	} else {
		env.Shape = ShapeUnrecognized
	}
	return env
}

func decodeData(fields map[string]json.RawMessage) Data {
	var d Data
	if raw, ok := fields["code"]; ok {
		d.Code, d.HasCode = decodeCode(raw)
	}
	if raw, ok := fields["status"]; ok {
		d.HasStatus = json.Unmarshal(raw, &d.Status) == nil && !isNull(raw)
	}
	if raw, ok := fields["message"]; ok {
		d.HasMessage = json.Unmarshal(raw, &d.Message) == nil && !isNull(raw)
	}
	if raw, ok := fields["verified"]; ok {
		d.HasVerified = json.Unmarshal(raw, &d.Verified) == nil && !isNull(raw)
	}
	if raw, ok := fields["account_exists"]; ok {
		d.HasAccount = json.Unmarshal(raw, &d.AccountExists) == nil && !isNull(raw)
	}
	return d
}

// decodeCode accepts a string or a number. Numbers use their shortest decimal
// form so 1001 and 1001.0 both become "1001".
func decodeCode(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil && !isNull(raw) {
		return s, true
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil && n != "" {
		if f, err := n.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return n.String(), true
	}
	return "", false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// falsy matches the values a loosely typed caller would treat as "no data".
func falsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "null", "false", "0", `""`:
		return true
	}
	return false
}
