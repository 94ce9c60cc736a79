/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/internal/logutil"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const (
	// InvalidRequestErrorCode is an error code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Credential)

	// GetCredentialErrorCode is an error code for GetCredential command.
	GetCredentialErrorCode

	// GetCredentialsErrorCode is an error code for GetCredentials command.
	GetCredentialsErrorCode
)

const (
	// CommandName is a base command name for held credential operations.
	CommandName = "credential"

	// GetCredentialCommandMethod is a command method for getting a held credential.
	GetCredentialCommandMethod = "GetCredential"

	// GetCredentialsCommandMethod is a command method for listing held credentials.
	GetCredentialsCommandMethod = "GetCredentials"
)

var logger = log.New("identity-hub/command/credential")

// Store reads held credentials.
type Store interface {
	Get(id string) (*credential.Record, error)
	List(format credential.Format) ([]*credential.Record, error)
}

// Command contains command operations.
type Command struct {
	store    Store
	displays submission.DisplayResolver
}

// New returns a new held credential command instance.
func New(store Store, displays submission.DisplayResolver) *Command {
	return &Command{store: store, displays: displays}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		command.NewHandler(CommandName, GetCredentialCommandMethod, c.GetCredential),
		command.NewHandler(CommandName, GetCredentialsCommandMethod, c.GetCredentials),
	}
}

// GetCredential returns a held credential and its display.
func (c *Command) GetCredential(w io.Writer, r io.Reader) command.Error {
	var req IDArgs

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(GetCredentialCommandMethod, InvalidRequestErrorCode, err)
	}

	if req.ID == "" {
		return commandError(GetCredentialCommandMethod, InvalidRequestErrorCode,
			errors.New("credential id is mandatory"))
	}

	record, err := c.store.Get(req.ID)
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			return commandError(GetCredentialCommandMethod, GetCredentialErrorCode, err)
		}

		return executeError(GetCredentialCommandMethod, GetCredentialErrorCode, err)
	}

	resp, err := c.describe(record)
	if err != nil {
		return executeError(GetCredentialCommandMethod, GetCredentialErrorCode, err)
	}

	command.WriteNillableResponse(w, resp, logger)

	logutil.LogDebug(logger, CommandName, GetCredentialCommandMethod, "success",
		logutil.CredentialIDString(req.ID))

	return nil
}

// GetCredentials lists held credentials, optionally of one format.
func (c *Command) GetCredentials(w io.Writer, r io.Reader) command.Error {
	var req GetCredentialsRequest

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(GetCredentialsCommandMethod, InvalidRequestErrorCode, err)
	}

	if req.Format != "" {
		if err := req.Format.IsValid(); err != nil {
			return commandError(GetCredentialsCommandMethod, InvalidRequestErrorCode, err)
		}
	}

	records, err := c.store.List(req.Format)
	if err != nil {
		return executeError(GetCredentialsCommandMethod, GetCredentialsErrorCode, err)
	}

	resp := &CredentialsResponse{Credentials: []*CredentialResponse{}}

	for _, record := range records {
		item, err := c.describe(record)
		if err != nil {
			return executeError(GetCredentialsCommandMethod, GetCredentialsErrorCode, err)
		}

		resp.Credentials = append(resp.Credentials, item)
	}

	command.WriteNillableResponse(w, resp, logger)

	logutil.LogDebug(logger, CommandName, GetCredentialsCommandMethod, "success")

	return nil
}

func (c *Command) describe(record *credential.Record) (*CredentialResponse, error) {
	display, err := c.displays.GetDisplay(context.Background(), record.ID)
	if err != nil {
		return nil, fmt.Errorf("get display of credential '%s': %w", record.ID, err)
	}

	return &CredentialResponse{Credential: record, Display: display}, nil
}

func commandError(action string, errorCode command.Code, err error) command.Error {
	logutil.LogInfo(logger, CommandName, action, err.Error())

	return command.NewValidationError(errorCode, err)
}

func executeError(action string, errorCode command.Code, err error) command.Error {
	logutil.LogError(logger, CommandName, action, err.Error())

	return command.NewExecuteError(errorCode, err)
}
