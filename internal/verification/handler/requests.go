package handler

import (
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

const (
	maxParams     = 20
	maxParamKey   = 64
	maxParamValue = 512
)

// ExecuteRequest is the body of POST /me/verifications/{serviceKey}.
type ExecuteRequest struct {
	Params map[string]string `json:"params"`
}

func (r *ExecuteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Params) == 0 {
		return dErrors.New(dErrors.CodeValidation, "params are required")
	}
	if len(r.Params) > maxParams {
		return dErrors.New(dErrors.CodeValidation, "too many params")
	}
	cleaned := make(map[string]string, len(r.Params))
	for k, v := range r.Params {
		k = strings.TrimSpace(k)
		if k == "" || len(k) > maxParamKey {
			return dErrors.New(dErrors.CodeValidation, "param names must be 1-64 characters")
		}
		if len(v) > maxParamValue {
			return dErrors.New(dErrors.CodeValidation, "param "+k+" is too long")
		}
		cleaned[k] = strings.TrimSpace(v)
	}
	r.Params = cleaned
	return nil
}
