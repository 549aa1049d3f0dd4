package service

import (
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
)

// StatusPolicy decides which order status transitions are allowed
type StatusPolicy interface {
	Name() string
	Allow(from, to string) bool
}

// NewStatusPolicy returns the named policy, open when unknown
func NewStatusPolicy(name string) StatusPolicy {
	if name == constants.StatusPolicyStrict {
		return strictStatusPolicy{}
	}
	return openStatusPolicy{}
}

// openStatusPolicy any known status may follow any other
type openStatusPolicy struct{}

func (openStatusPolicy) Name() string { return constants.StatusPolicyOpen }

func (openStatusPolicy) Allow(from, to string) bool {
	return constants.ValidOrderStatus(from) && constants.ValidOrderStatus(to)
}

// strictStatusPolicy forward one step or back one step; delivered is final
type strictStatusPolicy struct{}

var strictTransitions = map[string][]string{
	constants.OrderStatusPending:   {constants.OrderStatusPreparing, constants.OrderStatusAssigned},
	constants.OrderStatusPreparing: {constants.OrderStatusPending, constants.OrderStatusAssigned},
	constants.OrderStatusAssigned:  {constants.OrderStatusPreparing, constants.OrderStatusDelivered},
	constants.OrderStatusDelivered: {},
}

func (strictStatusPolicy) Name() string { return constants.StatusPolicyStrict }

func (strictStatusPolicy) Allow(from, to string) bool {
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
