/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	credentialcmd "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

// constants for the held credential operations.
const (
	OperationID        = "/credentials"
	GetCredentialsPath = OperationID
	GetCredentialPath  = OperationID + "/{id}"
)

// Operation contains REST operations provided by the held credential API.
type Operation struct {
	handlers []rest.Handler
	command  *credentialcmd.Command
}

// New returns a new instance of held credential REST controller.
func New(store credentialcmd.Store, displays submission.DisplayResolver) *Operation {
	op := &Operation{command: credentialcmd.New(store, displays)}
	op.registerHandlers()

	return op
}

func (o *Operation) registerHandlers() {
	o.handlers = []rest.Handler{
		rest.NewHandler(GetCredentialsPath, http.MethodGet, o.GetCredentials),
		rest.NewHandler(GetCredentialPath, http.MethodGet, o.GetCredential),
	}
}

// GetRESTHandlers gets all controller API handlers available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// GetCredentials swagger:route GET /credentials credential getCredentialsReq
//
// Lists held credentials. The optional "format" query parameter filters by format.
//
// Responses:
//    default: genericError
//        200: credentialsResponse
func (o *Operation) GetCredentials(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.GetCredentials, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"format":%q
	}`, req.URL.Query().Get("format"))))
}

// GetCredential swagger:route GET /credentials/{id} credential getCredentialReq
//
// Gets a held credential and its display.
//
// Responses:
//    default: genericError
//        200: credentialResponse
func (o *Operation) GetCredential(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.GetCredential, rw, bytes.NewBufferString(fmt.Sprintf(`{
		"id":%q
	}`, mux.Vars(req)["id"])))
}
