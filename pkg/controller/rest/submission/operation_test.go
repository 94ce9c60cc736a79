/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	submissioncmd "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command/submission"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
	submissionrest "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest/submission"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/internal/mock/resolver"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const buildRequest = `{
	"format": "anoncreds/proof-request@v1.0",
	"request": {
		"name": "Age check",
		"requested_predicates": {
			"pred_age": {"name": "age", "p_type": ">=", "p_value": 18}
		}
	}
}`

func newOperation() *submissionrest.Operation {
	r := &resolver.MockResolver{
		Matches: map[string][]*submission.CandidateMatch{
			"pred_age": {
				{GroupID: "pred_age", CredentialID: "cred-1", Values: map[string]string{"age": "34"}},
				{GroupID: "pred_age", CredentialID: "cred-2", Values: map[string]string{"age": "40"}},
			},
		},
	}

	return submissionrest.New(submission.NewBuilder(r, r))
}

func TestNew(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		op := newOperation()

		require.NotNil(t, op)
		require.Equal(t, 5, len(op.GetRESTHandlers()))
	})
}

func TestOperation_Lifecycle(t *testing.T) {
	op := newOperation()

	build := func(t *testing.T) string {
		t.Helper()

		handler := lookupHandler(t, op, submissionrest.BuildSubmissionPath, http.MethodPost)
		body, code := sendRequestToHandler(t, handler, strings.NewReader(buildRequest),
			submissionrest.BuildSubmissionPath)
		require.Equal(t, http.StatusOK, code)

		var resp submissioncmd.SubmissionResponse
		require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
		require.Equal(t, "Age check", resp.Submission.Name)

		return resp.Submission.ID
	}

	t.Run("Select then accept", func(t *testing.T) {
		id := build(t)

		handler := lookupHandler(t, op, submissionrest.GetSubmissionPath, http.MethodGet)
		body, code := sendRequestToHandler(t, handler, nil, "/submissions/"+id)
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body.String(), `"areAllSatisfied":true`)

		handler = lookupHandler(t, op, submissionrest.SelectCredentialPath, http.MethodPost)
		body, code = sendRequestToHandler(t, handler,
			strings.NewReader(`{"group_id":"pred_age","credential_id":"cred-2"}`), "/submissions/"+id+"/select")
		require.Equal(t, http.StatusOK, code)

		var resp submissioncmd.SubmissionResponse
		require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
		require.Equal(t, "cred-2", resp.Submission.Entries[0].Selected.Credential.ID)

		handler = lookupHandler(t, op, submissionrest.AcceptSubmissionPath, http.MethodPost)
		body, code = sendRequestToHandler(t, handler, nil, "/submissions/"+id+"/accept")
		require.Equal(t, http.StatusOK, code)

		var accepted submissioncmd.AcceptSubmissionResponse
		require.NoError(t, json.Unmarshal(body.Bytes(), &accepted))
		require.Equal(t, map[string]string{"pred_age": "cred-2"}, accepted.Selections.Predicates)

		handler = lookupHandler(t, op, submissionrest.GetSubmissionPath, http.MethodGet)
		_, code = sendRequestToHandler(t, handler, nil, "/submissions/"+id)
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Decline", func(t *testing.T) {
		id := build(t)

		handler := lookupHandler(t, op, submissionrest.DeclineSubmissionPath, http.MethodDelete)
		_, code := sendRequestToHandler(t, handler, nil, "/submissions/"+id)
		require.Equal(t, http.StatusOK, code)

		body, code := sendRequestToHandler(t, handler, nil, "/submissions/"+id)
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, body.String(), "submission not found")
	})

	t.Run("Invalid selection", func(t *testing.T) {
		id := build(t)

		handler := lookupHandler(t, op, submissionrest.SelectCredentialPath, http.MethodPost)
		body, code := sendRequestToHandler(t, handler,
			strings.NewReader(`{"group_id":"pred_age","credential_id":"cred-9"}`), "/submissions/"+id+"/select")
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, body.String(), "invalid selection")
	})

	t.Run("Invalid select body", func(t *testing.T) {
		handler := lookupHandler(t, op, submissionrest.SelectCredentialPath, http.MethodPost)
		body, code := sendRequestToHandler(t, handler, strings.NewReader("invalid request"),
			"/submissions/id/select")
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, body.String(), "decode request")
	})

	t.Run("Invalid build body", func(t *testing.T) {
		handler := lookupHandler(t, op, submissionrest.BuildSubmissionPath, http.MethodPost)
		body, code := sendRequestToHandler(t, handler, strings.NewReader("invalid request"),
			submissionrest.BuildSubmissionPath)
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, body.String(), "decode request")
	})
}

func lookupHandler(t *testing.T, op *submissionrest.Operation, path, method string) rest.Handler {
	t.Helper()

	handlers := op.GetRESTHandlers()
	require.NotEmpty(t, handlers)

	for _, h := range handlers {
		if h.Path() == path && h.Method() == method {
			return h
		}
	}

	require.Fail(t, "unable to find handler")

	return nil
}

func sendRequestToHandler(t *testing.T, handler rest.Handler, requestBody io.Reader, path string) (*bytes.Buffer, int) {
	t.Helper()

	// prepare request
	req, err := http.NewRequestWithContext(context.Background(), handler.Method(), path, requestBody)
	require.NoError(t, err)

	// prepare router
	router := mux.NewRouter()

	router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())

	// create a ResponseRecorder (which satisfies http.ResponseWriter) to record the response.
	rr := httptest.NewRecorder()

	// serve http on given response and request
	router.ServeHTTP(rr, req)

	return rr.Body, rr.Code
}
