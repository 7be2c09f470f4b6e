package analytics

import (
	"fmt"
	"strings"

	"github.com/jaevor/go-nanoid"
)

const namespacePrefix = "events"

// ClientContext identifies the application install whose events a store holds.
type ClientContext interface {
	AppID() string
	UniqueID() string
}

// StaticContext is a ClientContext with fixed identifiers.
type StaticContext struct {
	appID    string
	uniqueID string
}

// NewClientContext creates a client context. An empty uniqueID is replaced with a generated id.
func NewClientContext(appID, uniqueID string) (*StaticContext, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, fmt.Errorf("%w: app id is required", ErrInvalidContext)
	}

	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		generate, err := nanoid.Standard(21)
		if err != nil {
			return nil, fmt.Errorf("generate unique id: %w", err)
		}

		uniqueID = generate()
	}

	return &StaticContext{appID: appID, uniqueID: uniqueID}, nil
}

func (c *StaticContext) AppID() string {
	return c.appID
}

func (c *StaticContext) UniqueID() string {
	return c.uniqueID
}

// Namespace returns the property key under which the client's events are persisted.
func Namespace(c ClientContext) string {
	return fmt.Sprintf("%s:%s:%s", namespacePrefix, c.AppID(), c.UniqueID())
}
