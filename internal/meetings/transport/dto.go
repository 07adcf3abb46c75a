package transport

import (
	"time"

	"github.com/google/uuid"
)

type MeetingResponse struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Guest             string    `json:"guest"`
	StartsAt          time.Time `json:"startsAt"`
	ClientName        string    `json:"clientName"`
	ClientPhone       string    `json:"clientPhone"`
	Location          string    `json:"location"`
	ConfirmationState string    `json:"confirmationState"`
	Watched           bool      `json:"watched"`
	WatchedPhone      string    `json:"watchedPhone,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ManualConfirmationRequest overrides a meeting's confirmation state.
type ManualConfirmationRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed declined pending"`
}

type ManualConfirmationResponse struct {
	MeetingID    int64     `json:"meetingId"`
	Status       string    `json:"status"`
	ResponseID   uuid.UUID `json:"responseId"`
	WatchRetired bool      `json:"watchRetired"`
}

type ClientResponse struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	Analysis   any       `json:"analysis,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type ListResponsesRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

type ListResponsesResponse struct {
	MeetingID int64            `json:"meetingId"`
	Items     []ClientResponse `json:"items"`
	Total     int              `json:"total"`
}

// ConfirmationRequest asks for the WhatsApp confirmation message to be sent,
// optionally after a delay.
type ConfirmationRequest struct {
	DelaySeconds int `json:"delaySeconds" validate:"min=0,max=604800"`
}

type ConfirmationRequestResponse struct {
	MeetingID    int64 `json:"meetingId"`
	Queued       bool  `json:"queued"`
	DelaySeconds int   `json:"delaySeconds"`
}

type WatchResponse struct {
	MeetingID int64  `json:"meetingId"`
	Phone     string `json:"phone"`
}

type WatchListResponse struct {
	Items []WatchResponse `json:"items"`
	Count int             `json:"count"`
}

type AddWatchRequest struct {
	MeetingID int64  `json:"meetingId" validate:"required,gt=0"`
	Phone     string `json:"phone" validate:"required,phone_digits"`
}

type ClearWatchesResponse struct {
	Removed int `json:"removed"`
}
