package airtable

import (
	"context"
	"sync"

	"github.com/go-airtable/airtable/core"
)

type (
	Config              = core.Config
	Defaults            = core.Defaults
	Params              = core.Params
	Request             = core.Request
	Response            = core.Response
	Error               = core.Error
	ErrorKind           = core.ErrorKind
	ParamsValidation    = core.ParamsValidation
	RESTSession         = core.RESTSession
	BackoffPolicy       = core.BackoffPolicy
	DeprecationRegistry = core.DeprecationRegistry
)

// Fields maps field names to cell values.
type Fields map[string]any

var (
	defaultsMu sync.RWMutex
	defaults   Defaults
)

// Configure sets process-wide fallbacks. They are consulted for fields left
// empty in a Config and take priority over environment variables.
func Configure(d Defaults) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults = d
}

// CurrentDefaults returns the values set by Configure.
func CurrentDefaults() Defaults {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

// Client is the entry point of the library. It is safe for concurrent use.
type Client struct {
	session RESTSession
}

// New resolves config and returns a client. A nil config is resolved from
// process defaults and the environment only. The config is modified in place
// and must not be changed afterwards.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(core.DefaultValidators(CurrentDefaults())...); err != nil {
		return nil, err
	}
	session, err := core.NewSession(config)
	if err != nil {
		return nil, err
	}
	return &Client{session: session}, nil
}

// NewWithSession wraps an existing session.
func NewWithSession(session RESTSession) *Client {
	return &Client{session: session}
}

// Base returns a handle for the base with the given id. No request is made.
func (c *Client) Base(id string) *Base {
	return &Base{client: c, id: id}
}

// MakeRequest sends a raw request. Path is relative to the versioned endpoint.
func (c *Client) MakeRequest(ctx context.Context, r *Request) (*Response, error) {
	return c.session.Do(ctx, r)
}

func (c *Client) Session() RESTSession {
	return c.session
}

func (c *Client) Config() *Config {
	return c.session.GetConfig()
}
