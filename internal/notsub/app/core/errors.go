package core

import (
	"errors"

	xerrors "campus-canteen/internal/xpkg/errors"
)

var (
	ErrHelp = xerrors.ErrHelp

	ErrRMQConn     = errors.New("rabbitmq connection failure")
	ErrNotReady    = errors.New("rabbitmq channel is not ready")
	ErrBadEvent    = errors.New("malformed order event")
	ErrBrokerUnset = errors.New("rabbitmq host is not configured")
)
