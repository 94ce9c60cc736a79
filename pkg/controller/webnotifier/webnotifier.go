/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
)

var logger = log.New("identity-hub/webnotifier")

const (
	notificationSendTimeout = 10 * time.Second
	emptyTopicErrMsg        = "cannot notify with an empty topic"
	emptyMessageErrMsg      = "cannot notify with an empty message"
	failedToCreateErrMsg    = "failed to create topic message : %w"
)

// Notifier represents a notification dispatcher.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// WebNotifier dispatches notifications to webhook subscribers and websocket clients.
type WebNotifier struct {
	notifiers []Notifier
	handlers  []rest.Handler
}

// New returns a new instance of a WebNotifier serving websocket clients on wsPath.
func New(wsPath string, webhookURLs []string, opts ...HTTPOption) *WebNotifier {
	ws := NewWSNotifier(wsPath)

	return &WebNotifier{
		notifiers: []Notifier{NewHTTPNotifier(webhookURLs, opts...), ws},
		handlers:  ws.GetRESTHandlers(),
	}
}

// Notify sends the given message to every subscriber.
// If multiple errors are encountered, then the first one is returned.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket handler.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

// topicMessage is the envelope of a notification.
type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps message in a topic envelope with a unique id.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	return json.Marshal(&topicMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	})
}

func appendError(errs, err error) error {
	if errs == nil {
		return err
	}

	if err != nil {
		logger.Debugf("additional notification error: %s", err)
	}

	return errs
}

func emptyInput(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	return nil
}
