/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"encoding/json"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

// BuildSubmissionRequest model
//
// This is used for building a presentation submission from a verifier request.
//
type BuildSubmissionRequest struct {
	// Format is the attachment format identifier of the request,
	// e.g. "anoncreds/proof-request@v1.0" or "dif/presentation-exchange/definitions@v1.0".
	Format string `json:"format"`
	// Request is the request attachment payload.
	Request json.RawMessage `json:"request"`
	// Comment is the human comment accompanying the request.
	Comment string `json:"comment,omitempty"`
}

// SubmissionResponse model
//
// Response containing a presentation submission.
//
type SubmissionResponse struct {
	Submission *submission.PresentationSubmission `json:"submission"`
}

// IDArgs model
//
// This is used for operations on a submission by its id.
//
type IDArgs struct {
	ID string `json:"id"`
}

// SelectCredentialRequest model
//
// This is used for selecting an alternate credential for one entry of a submission.
//
type SelectCredentialRequest struct {
	// ID of the submission.
	ID string `json:"id"`
	// GroupID is any group id subsumed by the entry.
	GroupID string `json:"group_id"`
	// CredentialID of one of the entry's options.
	CredentialID string `json:"credential_id"`
}

// AcceptSubmissionResponse model
//
// Response containing the selections needed to build the protocol response.
//
type AcceptSubmissionResponse struct {
	ID         string                   `json:"id"`
	Format     submission.RequestFormat `json:"format"`
	Selections *submission.Selections   `json:"selections"`
	Params     json.RawMessage          `json:"params,omitempty"`
}

// Event is a submission lifecycle event.
type Event string

// Submission lifecycle events.
const (
	BuiltEvent    Event = "built"
	SelectedEvent Event = "selected"
	AcceptedEvent Event = "accepted"
	DeclinedEvent Event = "declined"
)

// SubmissionEvent is the notification published on the submission topic.
type SubmissionEvent struct {
	Event        Event                              `json:"event"`
	SubmissionID string                             `json:"submissionId"`
	Submission   *submission.PresentationSubmission `json:"submission,omitempty"`
}
