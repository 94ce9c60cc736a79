/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetries = 3

// HTTPClient represents an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOption configures the webhook notifier.
type HTTPOption func(n *HTTPNotifier)

// WithHTTPClient sets the client used to post notifications.
func WithHTTPClient(client HTTPClient) HTTPOption {
	return func(n *HTTPNotifier) {
		n.client = client
	}
}

// WithMaxRetries sets how many times a failed delivery is retried.
func WithMaxRetries(retries uint64) HTTPOption {
	return func(n *HTTPNotifier) {
		n.maxRetries = retries
	}
}

// HTTPNotifier is a webhook dispatcher capable of notifying multiple subscribers via HTTP.
type HTTPNotifier struct {
	urls       []string
	client     HTTPClient
	maxRetries uint64
}

// NewHTTPNotifier returns a new instance of an HTTPNotifier.
func NewHTTPNotifier(webhookURLs []string, opts ...HTTPOption) *HTTPNotifier {
	n := &HTTPNotifier{
		urls:       webhookURLs,
		client:     http.DefaultClient,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Notify sends the given message to all of the urls.
// Topic is carried in the message envelope.
// If multiple errors are encountered, then the first one is returned.
func (n *HTTPNotifier) Notify(topic string, message []byte) error {
	if err := emptyInput(topic, message); err != nil {
		return err
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	var allErrs error

	for _, webhookURL := range n.urls {
		destination := webhookURL

		err := backoff.Retry(func() error {
			return n.notifyWH(destination, topicMsg)
		}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries))
		allErrs = appendError(allErrs, err)
	}

	return allErrs
}

func (n *HTTPNotifier) notifyWH(destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination,
		bytes.NewBuffer(message))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create new http post request for %s: %w", destination, err))
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer closeResponse(resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		logger.Debugf("Notification sent to %s successfully.", destination)

		return nil
	}

	return fmt.Errorf("notification was sent to %s, but %s was received",
		destination, resp.Status)
}

func closeResponse(c io.Closer) {
	err := c.Close()
	if err != nil {
		logger.Errorf("Failed to close response body")
	}
}
