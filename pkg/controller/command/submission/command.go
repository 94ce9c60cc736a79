/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/internal/logutil"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const (
	// InvalidRequestErrorCode is an error code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Submission)

	// BuildSubmissionErrorCode is an error code for BuildSubmission command.
	BuildSubmissionErrorCode

	// GetSubmissionErrorCode is an error code for GetSubmission command.
	GetSubmissionErrorCode

	// SelectCredentialErrorCode is an error code for SelectCredential command.
	SelectCredentialErrorCode

	// AcceptSubmissionErrorCode is an error code for AcceptSubmission command.
	AcceptSubmissionErrorCode

	// DeclineSubmissionErrorCode is an error code for DeclineSubmission command.
	DeclineSubmissionErrorCode
)

const (
	// CommandName is a base command name for presentation submission operations.
	CommandName = "submission"

	// BuildSubmissionCommandMethod is a command method for building a submission.
	BuildSubmissionCommandMethod = "BuildSubmission"

	// GetSubmissionCommandMethod is a command method for getting a live submission.
	GetSubmissionCommandMethod = "GetSubmission"

	// SelectCredentialCommandMethod is a command method for selecting an alternate credential.
	SelectCredentialCommandMethod = "SelectCredential"

	// AcceptSubmissionCommandMethod is a command method for accepting a submission.
	AcceptSubmissionCommandMethod = "AcceptSubmission"

	// DeclineSubmissionCommandMethod is a command method for declining a submission.
	DeclineSubmissionCommandMethod = "DeclineSubmission"
)

// Topic is the notification topic of submission lifecycle events.
const Topic = "submissions"

const (
	defaultCacheSize    = 100
	defaultTTL          = 30 * time.Minute
	defaultBuildTimeout = 30 * time.Second
	defaultQueueSize    = 100
)

var logger = log.New("identity-hub/command/submission")

var errSubmissionNotFound = errors.New("submission not found")

// Builder builds presentation submissions.
type Builder interface {
	Build(ctx context.Context, req submission.Request) (*submission.PresentationSubmission, error)
}

// Notifier publishes notifications.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// Command contains command operations.
type Command struct {
	builder      Builder
	notifier     Notifier
	cacheSize    int
	ttl          time.Duration
	buildTimeout time.Duration
	queueSize    int
	submissions  gcache.Cache

	// mu serializes read-modify-write of live submissions.
	mu        sync.Mutex
	events    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures the submission command.
type Option func(cmd *Command)

// WithSubmissionTTL sets how long a live submission is kept before it is discarded.
func WithSubmissionTTL(ttl time.Duration) Option {
	return func(cmd *Command) {
		cmd.ttl = ttl
	}
}

// WithCacheSize sets the maximum number of live submissions.
func WithCacheSize(size int) Option {
	return func(cmd *Command) {
		cmd.cacheSize = size
	}
}

// WithBuildTimeout limits the time spent building one submission.
func WithBuildTimeout(timeout time.Duration) Option {
	return func(cmd *Command) {
		cmd.buildTimeout = timeout
	}
}

// WithNotifier publishes submission lifecycle events to notifier. Events are delivered in order
// from a background goroutine, so a slow notifier never delays a command.
func WithNotifier(notifier Notifier) Option {
	return func(cmd *Command) {
		cmd.notifier = notifier
	}
}

// WithNotificationQueueSize sets how many events may wait for delivery. Events published while
// the queue is full are dropped.
func WithNotificationQueueSize(size int) Option {
	return func(cmd *Command) {
		if size > 0 {
			cmd.queueSize = size
		}
	}
}

// New returns a new presentation submission command instance.
func New(builder Builder, opts ...Option) *Command {
	cmd := &Command{
		builder:      builder,
		cacheSize:    defaultCacheSize,
		ttl:          defaultTTL,
		buildTimeout: defaultBuildTimeout,
		queueSize:    defaultQueueSize,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cmd)
	}

	cmd.submissions = gcache.New(cmd.cacheSize).LRU().Expiration(cmd.ttl).Build()

	if cmd.notifier != nil {
		cmd.events = make(chan []byte, cmd.queueSize)

		go cmd.deliver()
	}

	return cmd
}

// Close stops event delivery. Queued events that were not yet delivered are dropped.
func (c *Command) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		command.NewHandler(CommandName, BuildSubmissionCommandMethod, c.BuildSubmission),
		command.NewHandler(CommandName, GetSubmissionCommandMethod, c.GetSubmission),
		command.NewHandler(CommandName, SelectCredentialCommandMethod, c.SelectCredential),
		command.NewHandler(CommandName, AcceptSubmissionCommandMethod, c.AcceptSubmission),
		command.NewHandler(CommandName, DeclineSubmissionCommandMethod, c.DeclineSubmission),
	}
}

// BuildSubmission builds a presentation submission from a verifier request and keeps it live
// until it is accepted, declined or expires.
func (c *Command) BuildSubmission(w io.Writer, r io.Reader) command.Error {
	var req BuildSubmissionRequest

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(BuildSubmissionCommandMethod, InvalidRequestErrorCode, err)
	}

	if req.Format == "" || len(req.Request) == 0 {
		return commandError(BuildSubmissionCommandMethod, InvalidRequestErrorCode,
			errors.New("format and request are mandatory"))
	}

	request, err := submission.ParseRequest(req.Format, req.Request)
	if err != nil {
		return commandError(BuildSubmissionCommandMethod, InvalidRequestErrorCode, err)
	}

	setComment(request, req.Comment)

	ctx, cancel := context.WithTimeout(context.Background(), c.buildTimeout)
	defer cancel()

	sub, err := c.builder.Build(ctx, request)
	if err != nil {
		if errors.Is(err, submission.ErrMalformedRequest) || errors.Is(err, submission.ErrUnknownOperator) {
			return commandError(BuildSubmissionCommandMethod, InvalidRequestErrorCode,
				fmt.Errorf("build submission: %w", err))
		}

		return executeError(BuildSubmissionCommandMethod, BuildSubmissionErrorCode,
			fmt.Errorf("build submission: %w", err))
	}

	if err = c.submissions.Set(sub.ID, sub); err != nil {
		return executeError(BuildSubmissionCommandMethod, BuildSubmissionErrorCode,
			fmt.Errorf("keep submission: %w", err))
	}

	c.notify(BuiltEvent, sub.ID, sub)

	command.WriteNillableResponse(w, &SubmissionResponse{Submission: sub}, logger)

	logutil.LogDebug(logger, CommandName, BuildSubmissionCommandMethod, "success",
		logutil.SubmissionIDString(sub.ID))

	return nil
}

// GetSubmission returns a live submission.
func (c *Command) GetSubmission(w io.Writer, r io.Reader) command.Error {
	var req IDArgs

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(GetSubmissionCommandMethod, InvalidRequestErrorCode, err)
	}

	sub, err := c.get(req.ID)
	if err != nil {
		return commandError(GetSubmissionCommandMethod, GetSubmissionErrorCode, err)
	}

	command.WriteNillableResponse(w, &SubmissionResponse{Submission: sub}, logger)

	logutil.LogDebug(logger, CommandName, GetSubmissionCommandMethod, "success",
		logutil.SubmissionIDString(sub.ID))

	return nil
}

// SelectCredential replaces the selected credential of one entry of a live submission.
func (c *Command) SelectCredential(w io.Writer, r io.Reader) command.Error {
	var req SelectCredentialRequest

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(SelectCredentialCommandMethod, InvalidRequestErrorCode, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.get(req.ID)
	if err != nil {
		return commandError(SelectCredentialCommandMethod, SelectCredentialErrorCode, err)
	}

	updated, err := submission.Select(sub, req.GroupID, req.CredentialID)
	if err != nil {
		return commandError(SelectCredentialCommandMethod, SelectCredentialErrorCode, err)
	}

	if err = c.submissions.Set(updated.ID, updated); err != nil {
		return executeError(SelectCredentialCommandMethod, SelectCredentialErrorCode,
			fmt.Errorf("keep submission: %w", err))
	}

	c.notify(SelectedEvent, updated.ID, updated)

	command.WriteNillableResponse(w, &SubmissionResponse{Submission: updated}, logger)

	logutil.LogDebug(logger, CommandName, SelectCredentialCommandMethod, "success",
		logutil.SubmissionIDString(updated.ID), logutil.CredentialIDString(req.CredentialID))

	return nil
}

// AcceptSubmission returns the selections of a live submission and discards it.
// Fails when any entry is unsatisfied.
func (c *Command) AcceptSubmission(w io.Writer, r io.Reader) command.Error {
	var req IDArgs

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(AcceptSubmissionCommandMethod, InvalidRequestErrorCode, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.get(req.ID)
	if err != nil {
		return commandError(AcceptSubmissionCommandMethod, AcceptSubmissionErrorCode, err)
	}

	if !sub.AreAllSatisfied() {
		return commandError(AcceptSubmissionCommandMethod, AcceptSubmissionErrorCode,
			fmt.Errorf("submission '%s' is not satisfied", sub.ID))
	}

	c.submissions.Remove(sub.ID)
	c.notify(AcceptedEvent, sub.ID, sub)

	command.WriteNillableResponse(w, &AcceptSubmissionResponse{
		ID:         sub.ID,
		Format:     sub.Format,
		Selections: sub.Selections(),
		Params:     sub.Params,
	}, logger)

	logutil.LogDebug(logger, CommandName, AcceptSubmissionCommandMethod, "success",
		logutil.SubmissionIDString(sub.ID))

	return nil
}

// DeclineSubmission discards a live submission.
func (c *Command) DeclineSubmission(w io.Writer, r io.Reader) command.Error {
	var req IDArgs

	if err := command.DecodeRequest(r, &req); err != nil {
		return commandError(DeclineSubmissionCommandMethod, InvalidRequestErrorCode, err)
	}

	c.mu.Lock()
	removed := c.submissions.Remove(req.ID)
	c.mu.Unlock()

	if !removed {
		return commandError(DeclineSubmissionCommandMethod, DeclineSubmissionErrorCode,
			fmt.Errorf("%w: '%s'", errSubmissionNotFound, req.ID))
	}

	c.notify(DeclinedEvent, req.ID, nil)

	command.WriteNillableResponse(w, nil, logger)

	logutil.LogDebug(logger, CommandName, DeclineSubmissionCommandMethod, "success",
		logutil.SubmissionIDString(req.ID))

	return nil
}

func (c *Command) get(id string) (*submission.PresentationSubmission, error) {
	if id == "" {
		return nil, errors.New("submission id is mandatory")
	}

	value, err := c.submissions.Get(id)
	if err != nil {
		if errors.Is(err, gcache.KeyNotFoundError) {
			return nil, fmt.Errorf("%w: '%s'", errSubmissionNotFound, id)
		}

		return nil, fmt.Errorf("get submission: %w", err)
	}

	sub, ok := value.(*submission.PresentationSubmission)
	if !ok {
		return nil, fmt.Errorf("unexpected submission type %T", value)
	}

	return sub, nil
}

// notify queues an event for delivery. It never blocks.
func (c *Command) notify(event Event, id string, sub *submission.PresentationSubmission) {
	if c.notifier == nil {
		return
	}

	msg, err := json.Marshal(&SubmissionEvent{Event: event, SubmissionID: id, Submission: sub})
	if err != nil {
		logger.Errorf("failed to marshal %s event of submission '%s': %s", event, id, err)

		return
	}

	select {
	case <-c.done:
	case c.events <- msg:
	default:
		logger.Warnf("notification queue full, dropping %s event of submission '%s'", event, id)
	}
}

func (c *Command) deliver() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.events:
			if err := c.notifier.Notify(Topic, msg); err != nil {
				logger.Warnf("failed to deliver submission event: %s", err)
			}
		}
	}
}

func setComment(req submission.Request, comment string) {
	if comment == "" {
		return
	}

	switch r := req.(type) {
	case *submission.SelectiveDisclosureRequest:
		r.Comment = comment
	case *submission.PresentationExchangeRequest:
		r.Comment = comment
	case *submission.LegacyExchangeRequest:
		if r.Record.Comment == "" {
			r.Record.Comment = comment
		}
	}
}

func commandError(action string, errorCode command.Code, err error) command.Error {
	logutil.LogInfo(logger, CommandName, action, err.Error())

	return command.NewValidationError(errorCode, err)
}

func executeError(action string, errorCode command.Code, err error) command.Error {
	logutil.LogError(logger, CommandName, action, err.Error())

	return command.NewExecuteError(errorCode, err)
}
