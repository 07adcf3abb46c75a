package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskConfirmationSend = "confirmation.send"

type ConfirmationSendPayload struct {
	MeetingID int64 `json:"meetingId"`
}

func NewConfirmationSendTask(payload ConfirmationSendPayload) (*asynq.Task, error) {
	if payload.MeetingID <= 0 {
		return nil, fmt.Errorf("confirmation send: invalid meeting id %d", payload.MeetingID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConfirmationSend, data), nil
}

func ParseConfirmationSendPayload(task *asynq.Task) (ConfirmationSendPayload, error) {
	var payload ConfirmationSendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConfirmationSendPayload{}, err
	}
	return payload, nil
}
