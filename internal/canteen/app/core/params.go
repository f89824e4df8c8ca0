package core

import (
	"net/netip"
	"time"
)

type CanteenParams struct {
	Port int
	// CheckoutRate is the number of orders a single client may place per
	// minute.
	CheckoutRate  int
	CheckoutBurst int
	// TrustedProxies may set the client address through X-Forwarded-For,
	// X-Real-IP or True-Client-IP. Any other peer is limited by its own
	// address.
	TrustedProxies []netip.Prefix
}

const (
	// in seconds for store responses
	WaitTime = 20

	MinTableNumber = 1
	MaxItemLines   = 50
	MaxQuantity    = 50
	MaxNoteLen     = 200
	MinNameLen     = 1
	MaxNameLen     = 100

	MBReconnInterval = 5 * time.Second

	ChangedByCustomer = "customer"
	ChangedByKitchen  = "kitchen"
	ChangedByAdmin    = "admin"
)
