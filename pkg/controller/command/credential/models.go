/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

// IDArgs model
//
// This is used for getting a held credential by its id.
//
type IDArgs struct {
	ID string `json:"id"`
}

// GetCredentialsRequest model
//
// This is used for listing held credentials, optionally of one format.
//
type GetCredentialsRequest struct {
	// Format is "anoncreds" or "w3c"; empty lists all.
	Format credential.Format `json:"format,omitempty"`
}

// CredentialResponse model
//
// A held credential together with how it is displayed.
//
type CredentialResponse struct {
	Credential *credential.Record            `json:"credential"`
	Display    *submission.CredentialDisplay `json:"display"`
}

// CredentialsResponse model
//
// Response of listing held credentials.
//
type CredentialsResponse struct {
	Credentials []*CredentialResponse `json:"credentials"`
}
