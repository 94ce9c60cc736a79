/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
)

// SubmissionQueryParam restricts a websocket client to the events of one submission.
const SubmissionQueryParam = "submission"

// subscriber is a connected websocket client. An empty submissionID receives every event.
type subscriber struct {
	conn         *websocket.Conn
	submissionID string
}

func (s *subscriber) wants(submissionID string) bool {
	return s.submissionID == "" || s.submissionID == submissionID
}

// WSNotifier pushes events to websocket clients. Clients connected with
// ?submission=<id> only receive the events of that submission.
type WSNotifier struct {
	subscribers map[*websocket.Conn]*subscriber
	lock        sync.RWMutex
	handlers    []rest.Handler
}

// NewWSNotifier returns a new instance of an WSNotifier serving clients on path.
func NewWSNotifier(path string) *WSNotifier {
	n := &WSNotifier{
		subscribers: map[*websocket.Conn]*subscriber{},
	}

	n.handlers = []rest.Handler{
		rest.NewHandler(path, http.MethodGet, n.handleWS),
	}

	return n
}

// Notify sends the message to every interested client. A client that cannot be written to is
// disconnected. The first write error is returned.
func (n *WSNotifier) Notify(topic string, message []byte) error {
	if err := emptyInput(topic, message); err != nil {
		return err
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	submissionID := eventSubmissionID(message)

	n.lock.RLock()
	targets := make([]*subscriber, 0, len(n.subscribers))

	for _, sub := range n.subscribers {
		if sub.wants(submissionID) {
			targets = append(targets, sub)
		}
	}
	n.lock.RUnlock()

	var allErrs error

	for _, sub := range targets {
		if e := notifyWS(context.Background(), sub.conn, topicMsg); e != nil {
			allErrs = appendError(allErrs, e)

			n.drop(sub.conn, websocket.StatusGoingAway, "write failed")
		}
	}

	return allErrs
}

// eventSubmissionID reads the submission id of a lifecycle event; "" when there is none.
func eventSubmissionID(message []byte) string {
	var event struct {
		SubmissionID string `json:"submissionId"`
	}

	if err := json.Unmarshal(message, &event); err != nil {
		return ""
	}

	return event.SubmissionID
}

func notifyWS(parent context.Context, conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Infof("failed to upgrade the websocket notification connection : %v", err)

		return
	}

	sub := &subscriber{conn: conn, submissionID: r.URL.Query().Get(SubmissionQueryParam)}

	logger.Debugf("websocket notification client connected, submission=[%s]", sub.submissionID)

	n.lock.Lock()
	n.subscribers[conn] = sub
	n.lock.Unlock()

	n.monitorWSConn(context.Background(), conn)
}

// monitorWSConn blocks until the client goes away; clients are not expected to send messages.
func (n *WSNotifier) monitorWSConn(ctx context.Context, conn *websocket.Conn) {
	_, _, err := conn.Reader(ctx)
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("reading from websocket notification client failed: %v", err)
	}

	n.drop(conn, websocket.StatusPolicyViolation, "unexpected message")
}

// drop closes the connection and forgets it. Safe to call more than once.
func (n *WSNotifier) drop(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	n.lock.Lock()
	_, ok := n.subscribers[conn]
	delete(n.subscribers, conn)
	n.lock.Unlock()

	if !ok {
		return
	}

	logger.Debugf("websocket notification client dropped: %s", reason)

	if err := conn.Close(code, reason); err != nil {
		logger.Debugf("closing websocket notification client failed: %v", err)
	}
}

// GetRESTHandlers returns all REST handlers provided by notifier.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

func (n *WSNotifier) connCount() int {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return len(n.subscribers)
}
