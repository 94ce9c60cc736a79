/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

// selectCredentialBody is the body of a select credential request; the submission id is in the path.
type selectCredentialBody struct {
	GroupID      string `json:"group_id"`
	CredentialID string `json:"credential_id"`
}
