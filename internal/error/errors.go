package error

import "errors"

var (
	ErrMissingAccessToken = errors.New("response has no access_token")
	ErrEmptyTarget        = errors.New("target id cannot be empty")
	ErrUnknownTargetType  = errors.New("unknown target type")
	ErrEmptyPayload       = errors.New("content or image_url is required")
	ErrTimeout            = errors.New("timeout")
	ErrGatewayClosed      = errors.New("gateway connection closed")
	ErrInvalidSession     = errors.New("gateway session invalidated")
	ErrReconnectRequested = errors.New("gateway requested reconnect")
)
