/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	submissioncmd "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command/submission"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
)

// constants for the presentation submission operations.
const (
	OperationID           = "/submissions"
	BuildSubmissionPath   = OperationID
	GetSubmissionPath     = OperationID + "/{id}"
	SelectCredentialPath  = OperationID + "/{id}/select"
	AcceptSubmissionPath  = OperationID + "/{id}/accept"
	DeclineSubmissionPath = OperationID + "/{id}"
)

// Operation contains REST operations provided by the presentation submission API.
type Operation struct {
	handlers []rest.Handler
	command  *submissioncmd.Command
}

// New returns a new instance of presentation submission REST controller.
func New(builder submissioncmd.Builder, opts ...submissioncmd.Option) *Operation {
	op := &Operation{command: submissioncmd.New(builder, opts...)}
	op.registerHandlers()

	return op
}

func (o *Operation) registerHandlers() {
	o.handlers = []rest.Handler{
		rest.NewHandler(BuildSubmissionPath, http.MethodPost, o.BuildSubmission),
		rest.NewHandler(GetSubmissionPath, http.MethodGet, o.GetSubmission),
		rest.NewHandler(SelectCredentialPath, http.MethodPost, o.SelectCredential),
		rest.NewHandler(AcceptSubmissionPath, http.MethodPost, o.AcceptSubmission),
		rest.NewHandler(DeclineSubmissionPath, http.MethodDelete, o.DeclineSubmission),
	}
}

// GetRESTHandlers gets all controller API handlers available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// BuildSubmission swagger:route POST /submissions submission buildSubmissionReq
//
// Builds a presentation submission from a verifier request.
//
// Responses:
//    default: genericError
//        200: submissionResponse
func (o *Operation) BuildSubmission(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.BuildSubmission, rw, req.Body)
}

// GetSubmission swagger:route GET /submissions/{id} submission getSubmissionReq
//
// Gets a live presentation submission.
//
// Responses:
//    default: genericError
//        200: submissionResponse
func (o *Operation) GetSubmission(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.GetSubmission, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"id":%q
	}`, mux.Vars(req)["id"])))
}

// SelectCredential swagger:route POST /submissions/{id}/select submission selectCredentialReq
//
// Selects an alternate credential for one entry of a live presentation submission.
//
// Responses:
//    default: genericError
//        200: submissionResponse
func (o *Operation) SelectCredential(rw http.ResponseWriter, req *http.Request) {
	var body selectCredentialBody

	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, submissioncmd.InvalidRequestErrorCode,
			fmt.Errorf("decode request: %w", err))

		return
	}

	rest.Execute(o.command.SelectCredential, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"id":%q,
		"group_id":%q,
		"credential_id":%q
	}`, mux.Vars(req)["id"], body.GroupID, body.CredentialID)))
}

// AcceptSubmission swagger:route POST /submissions/{id}/accept submission acceptSubmissionReq
//
// Accepts a live presentation submission and returns its selections.
//
// Responses:
//    default: genericError
//        200: acceptSubmissionResponse
func (o *Operation) AcceptSubmission(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.AcceptSubmission, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"id":%q
	}`, mux.Vars(req)["id"])))
}

// DeclineSubmission swagger:route DELETE /submissions/{id} submission declineSubmissionReq
//
// Declines and discards a live presentation submission.
//
// Responses:
//    default: genericError
func (o *Operation) DeclineSubmission(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.DeclineSubmission, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"id":%q
	}`, mux.Vars(req)["id"])))
}
