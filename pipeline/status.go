// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline implements the asynchronous data pipeline: flow
// states carrying data collections with a validity interval, the
// per-stage cache that guarantees at most one concurrent evaluation
// per overlapping time window, modifier applications gluing modifiers
// into the pipeline chain, and the delegating modifier machinery.
package pipeline

// StatusType describes the outcome of a pipeline stage evaluation.
type StatusType int32

const (
	// StatusSuccess indicates the evaluation completed normally.
	StatusSuccess StatusType = iota

	// StatusWarning indicates the evaluation completed with warnings.
	StatusWarning

	// StatusError indicates the evaluation failed.
	StatusError

	// StatusPending indicates an evaluation is still in progress.
	StatusPending
)

func (st StatusType) String() string {
	switch st {
	case StatusSuccess:
		return "Success"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	case StatusPending:
		return "Pending"
	}
	return "Invalid"
}

// Status is the outcome of a pipeline stage evaluation: a type and a
// human-readable, possibly multi-line, message.
type Status struct {
	Type StatusType
	Text string
}

// ErrorStatus returns an error status carrying the given message.
func ErrorStatus(text string) Status {
	return Status{Type: StatusError, Text: text}
}

// Merge folds the status reported by a modifier delegate into this
// running status and returns the result. The merged type becomes the
// delegate's type if the running status was still a plain success, or
// if the delegate reports an error; an error is never downgraded by a
// later successful delegate. Note the asymmetry: a warning already
// present is not replaced by a later delegate's warning — the first
// warning wins. Message texts are concatenated with a newline, empty
// segments omitted.
func (s Status) Merge(delegate Status) Status {
	if s.Type == StatusSuccess || delegate.Type == StatusError {
		s.Type = delegate.Type
	}
	if delegate.Text != "" {
		if s.Text != "" {
			s.Text += "\n" + delegate.Text
		} else {
			s.Text = delegate.Text
		}
	}
	return s
}
