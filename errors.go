package jws

import (
	"errors"
	"fmt"
)

// Token processing errors. Every failure returned by Produce, Validate and
// Verify matches exactly one of these with errors.Is.
var (
	ErrMalformedToken            = errors.New("malformed token: compact serialization needs exactly three segments")
	ErrDecode                    = errors.New("invalid base64url segment")
	ErrInvalidHeaderJSON         = errors.New("header is not a valid JSON object")
	ErrMissingAlgorithm          = errors.New(`header has no "alg" parameter`)
	ErrCriticalParameterRejected = errors.New("critical header parameters rejected")
	ErrUnsupportedAlgorithm      = errors.New("unsupported algorithm")
	ErrAlgorithm                 = errors.New("algorithm failed")
	ErrSignatureMismatch         = errors.New("signature mismatch")
)

// Policy and setup errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidKey    = errors.New("invalid key")
	ErrVerifyOnly    = errors.New("algorithm was built from a public key and cannot sign")

	// ErrAlgorithmNotAllowed also matches ErrUnsupportedAlgorithm.
	ErrAlgorithmNotAllowed = fmt.Errorf("%w: not in the allowed set", ErrUnsupportedAlgorithm)

	ErrMissingNonce    = errors.New(`header has no "nonce" parameter`)
	ErrNonceReplayed   = errors.New("nonce has already been used")
	ErrProcessorClosed = errors.New("processor is closed: cannot perform operations")
	ErrRateLimited     = errors.New("signing rate limit exceeded")
)

// ValidationError describes a structural problem with a single header
// parameter or configuration field.
type ValidationError struct {
	Field   string // The parameter or field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for field '%s': %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Reasons returned by Reason.
const (
	ReasonMalformedToken    = "malformed_token"
	ReasonDecode            = "decode_error"
	ReasonInvalidHeaderJSON = "invalid_header_json"
	ReasonMissingAlgorithm  = "missing_algorithm"
	ReasonCriticalRejected  = "critical_parameter_rejected"
	ReasonUnsupported       = "unsupported_algorithm"
	ReasonAlgorithm         = "algorithm_error"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonHeaderPolicy      = "header_policy"
	ReasonProcessorClosed   = "processor_closed"
	ReasonRateLimited       = "rate_limited"
	ReasonInvalidInvocation = "invalid_invocation"
)

var reasonOrder = []struct {
	err    error
	reason string
}{
	{ErrSignatureMismatch, ReasonSignatureMismatch},
	{ErrMalformedToken, ReasonMalformedToken},
	{ErrDecode, ReasonDecode},
	{ErrInvalidHeaderJSON, ReasonInvalidHeaderJSON},
	{ErrMissingAlgorithm, ReasonMissingAlgorithm},
	{ErrCriticalParameterRejected, ReasonCriticalRejected},
	{ErrUnsupportedAlgorithm, ReasonUnsupported},
	{ErrAlgorithm, ReasonAlgorithm},
	{ErrProcessorClosed, ReasonProcessorClosed},
	{ErrRateLimited, ReasonRateLimited},
	{ErrInvalidConfig, ReasonInvalidInvocation},
}

// Reason maps err to a stable, low-cardinality label for logs and metrics.
// Signature mismatches always get their own label. Errors raised by custom
// header handlers that match none of the package errors map to
// ReasonHeaderPolicy; nil maps to "".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasonOrder {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonHeaderPolicy
}
