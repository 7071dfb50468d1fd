// Package navigation delivers page changes decided by the pipeline to the
// client surface of a session.
package navigation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

const MessageTypeNavigate = "navigate"

var ErrNoSubscribers = errors.New("no navigation subscribers for session")

type Navigator interface {
	NavigateTo(ctx context.Context, sessionID, path string) error
}

type Message struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// LogNavigator only logs the destination. It backs the command line listener
// where there is no page to move.
type LogNavigator struct {
	log *logrus.Logger
}

func NewLogNavigator(log *logrus.Logger) *LogNavigator {
	return &LogNavigator{log: log}
}

func (n *LogNavigator) NavigateTo(ctx context.Context, sessionID, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"path":       path,
	}).Info("Navigating")
	return nil
}
