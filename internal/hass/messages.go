package hass

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/kidsched/internal/model"
)

// Services the kids_schedule integration exposes.
const (
	Domain              = "kids_schedule"
	ServiceCheckTask    = "check_task"
	ServiceUncheckTask  = "uncheck_task"
	ServiceResetRoutine = "reset_routine"

	AttrRoutineID = "routine_id"
	AttrTaskIndex = "task_index"
)

const (
	typeAuthRequired = "auth_required"
	typeAuth         = "auth"
	typeAuthOK       = "auth_ok"
	typeAuthInvalid  = "auth_invalid"
	typeResult       = "result"
	typeEvent        = "event"
	typeGetStates    = "get_states"
	typeSubscribe    = "subscribe_events"
	typeCallService  = "call_service"
	typePing         = "ping"
	typePong         = "pong"

	eventStateChanged = "state_changed"
)

var (
	ErrAuthInvalid  = errors.New("hass: authentication rejected")
	ErrNotConnected = errors.New("hass: not connected")
)

// ServiceError is a failed result returned by the host.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("hass: %s: %s", e.Code, e.Message)
}

// message is the envelope of every frame the host sends.
type message struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ServiceError   `json:"error,omitempty"`
	Event     *event          `json:"event,omitempty"`
	Message   string          `json:"message,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
}

type event struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string             `json:"entity_id"`
		NewState *model.EntityState `json:"new_state"`
	} `json:"data"`
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}
