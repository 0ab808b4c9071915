package models

import (
	"encoding/json"
)

// RequestStatus is the lifecycle state of a transportation request
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusPlanned    RequestStatus = "planned" // Legacy name for pending
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusInProgress RequestStatus = "in-progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// IsTerminal returns true for completed and cancelled requests
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// Valid reports whether s is a known status
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusPlanned, RequestStatusApproved,
		RequestStatusInProgress, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// TransportationRequest is a planned transportation job
type TransportationRequest struct {
	ID                    ID            `json:"id"`
	Origin                string        `json:"origin"`
	Destination           string        `json:"destination"`
	PlannedPickupDateTime Timestamp     `json:"pickUpDateTime"`
	TruckCount            *int          `json:"truckCount"`
	EstimatedDistance     float64       `json:"estimatedDistance"`
	EstimatedCost         *float64      `json:"estimatedCost"`
	LoadDetails           string        `json:"loadDetails"`
	Status                RequestStatus `json:"status"`
	Priority              string        `json:"priority,omitempty"`
	Delivery              *Delivery     `json:"delivery,omitempty"`
	CreatedAt             Timestamp     `json:"createdAt"`
	UpdatedAt             Timestamp     `json:"updatedAt"`
}

// UnmarshalJSON accepts plannedPickupDateTime, pickUpDateTime or pickupDate for the planned pickup.
func (r *TransportationRequest) UnmarshalJSON(b []byte) error {
	type plain TransportationRequest
	var wire struct {
		plain
		Planned    Timestamp `json:"plannedPickupDateTime"`
		PickupDate Timestamp `json:"pickupDate"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*r = TransportationRequest(wire.plain)
	if r.PlannedPickupDateTime.IsZero() {
		if !wire.Planned.IsZero() {
			r.PlannedPickupDateTime = wire.Planned
		} else {
			r.PlannedPickupDateTime = wire.PickupDate
		}
	}
	return nil
}

// Permissions describes which actions the UI may offer for a request
type Permissions struct {
	CanEditRequest  bool `json:"canEditRequest"`
	CanLogDelivery  bool `json:"canLogDelivery"`
	CanEditDelivery bool `json:"canEditDelivery"`
}

// PermissionsFor derives the allowed actions from the request status
func PermissionsFor(status RequestStatus) Permissions {
	open := status == RequestStatusPending || status == RequestStatusPlanned || status == RequestStatusApproved
	return Permissions{
		CanEditRequest:  open,
		CanLogDelivery:  open || status == RequestStatusInProgress,
		CanEditDelivery: status == RequestStatusCompleted,
	}
}

// CreateRequestInput is the payload for creating or updating a request
type CreateRequestInput struct {
	Origin            string    `json:"origin" validate:"required,min=2,max=100"`
	Destination       string    `json:"destination" validate:"required,min=2,max=100"`
	PickUpDateTime    Timestamp `json:"pickUpDateTime"`
	TruckCount        int       `json:"truckCount" validate:"required,min=1,max=20"`
	LoadDetails       string    `json:"loadDetails" validate:"required,min=10,max=1000"`
	EstimatedDistance float64   `json:"estimatedDistance" validate:"gte=0"`
	EstimatedCost     *float64  `json:"estimatedCost,omitempty" validate:"omitempty,gte=0"`
	Priority          string    `json:"priority,omitempty" validate:"omitempty,max=20"`
}

// RequestFilters are the list query parameters
type RequestFilters struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// RequestPage is one page of requests
type RequestPage struct {
	Data       []TransportationRequest `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

// Pagination mirrors the normalized backend pagination block
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}
