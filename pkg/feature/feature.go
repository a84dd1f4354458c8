// Package feature defines the account feature record consumed by the
// authenticity classifier, and the rules for building it from retrieved signals.
package feature

import (
	"encoding/json"
	"errors"
)

// Common errors returned by retrieval strategies.
var (
	ErrProfileNotFound = errors.New("profile does not exist")
	ErrRateLimited     = errors.New("rate limited")
)

// NotFoundMessage is the message carried by the not-found result.
const NotFoundMessage = "Username does not exist."

// StatusFailed is the status carried by every ExtractionError.
const StatusFailed = "failed"

// Vector is the canonical feature record. All eleven fields are always present
// when serialized; the JSON keys are the classifier's training column names.
//
//nolint:govet // fieldalignment: column order matches the training data
type Vector struct {
	Followers          int     `json:"followers"`
	Followees          int     `json:"followees"`
	Posts              int     `json:"posts"`
	IsBusiness         int     `json:"is_business"`
	BioLength          int     `json:"bio_length"`
	ExternalURL        int     `json:"external_url"`
	HasProfilePic      int     `json:"has_profile_pic"`
	FullnameWords      int     `json:"fullname_words"`
	NameEqualsUsername int     `json:"name==username"`
	DigitRatioUsername float64 `json:"nums/length_username"`
	DigitRatioFullname float64 `json:"nums/length_fullname"`
}

// Signal is the raw output of one retrieval strategy. It has the same shape as
// Vector; a strategy fills only the fields it can observe and leaves the rest zero.
type Signal Vector

// Status tags a single strategy attempt.
type Status int

// Outcome states. Exactly one applies to any attempt.
const (
	StatusFailure Status = iota
	StatusSuccess
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// Outcome is the result of one retrieval attempt.
// Build it with Success, NotFound or Failure.
type Outcome struct {
	Cause  error
	Signal Signal
	Status Status
}

// Success wraps a fully retrieved signal.
func Success(sig Signal) Outcome {
	return Outcome{Status: StatusSuccess, Signal: sig}
}

// NotFound reports that the upstream explicitly said the account is absent.
func NotFound() Outcome {
	return Outcome{Status: StatusNotFound, Cause: ErrProfileNotFound}
}

// Failure reports a transient or unclassified retrieval failure.
func Failure(cause error) Outcome {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	return Outcome{Status: StatusFailure, Cause: cause}
}

// ExtractionError is the only error shape that leaves the pipeline.
type ExtractionError struct {
	Message string `json:"error"`
	Status  string `json:"status"`
}

func (e *ExtractionError) Error() string { return e.Message }

// Result is either a feature vector or an ExtractionError, never both.
type Result struct {
	Vector *Vector
	Err    *ExtractionError
}

// OK reports whether the result carries a vector.
func (r Result) OK() bool { return r.Err == nil && r.Vector != nil }

// Found wraps a vector as a successful result.
func Found(v Vector) Result { return Result{Vector: &v} }

// Missing returns the not-found result.
func Missing() Result {
	return Result{Err: &ExtractionError{Message: NotFoundMessage, Status: StatusFailed}}
}

// MarshalJSON encodes either the eleven-key vector or the two-key error object.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(r.Vector)
	}
	if r.Err != nil {
		return json.Marshal(r.Err)
	}
	return json.Marshal(Missing().Err)
}
