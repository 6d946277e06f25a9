package card

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/kidsched/internal/hass"
	"github.com/dukerupert/kidsched/internal/model"
)

type Action string

const (
	ActionBack         Action = "back"
	ActionShowWeekly   Action = "show-weekly"
	ActionOpenRoutine  Action = "open-routine"
	ActionToggleTask   Action = "toggle-task"
	ActionResetRoutine Action = "reset-routine"
)

// Event is a user interaction with the rendered card.
type Event struct {
	Action    Action
	RoutineID string
	TaskIndex int
	// Day is set when a routine is opened from the weekly view.
	Day string
}

// Dispatch applies an event. Navigation only touches the view state; task
// toggles and resets call the host, settle, then re-read the routine.
// Lookups that find nothing are silent no-ops.
func (c *Card) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Action {
	case ActionBack:
		c.back()
	case ActionShowWeekly:
		c.mu.Lock()
		c.view.Mode = model.ViewWeekly
		c.mu.Unlock()
	case ActionOpenRoutine:
		c.openRoutine(ev.RoutineID, ev.Day)
	case ActionToggleTask:
		c.toggleTask(ctx, ev.RoutineID, ev.TaskIndex)
	case ActionResetRoutine:
		c.resetRoutine(ctx, ev.RoutineID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
	return nil
}

func (c *Card) back() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view.SelectedDay != "" {
		c.view.Mode = model.ViewWeekly
	} else {
		c.view.Mode = model.ViewDaily
	}
	c.view.SelectedRoutine = nil
	c.view.SelectedDay = ""
}

func (c *Card) openRoutine(routineID, day string) {
	routine, ok := c.lookup(routineID)
	if !ok {
		return
	}

	c.mu.Lock()
	c.view.SelectedRoutine = &routine
	c.view.SelectedDay = day
	c.view.Mode = model.ViewRoutine
	c.mu.Unlock()
}

func (c *Card) toggleTask(ctx context.Context, routineID string, index int) {
	routine, ok := c.lookup(routineID)
	if !ok || index < 0 || index >= len(routine.Tasks) {
		return
	}

	service := hass.ServiceCheckTask
	if routine.Tasks[index].Completed {
		service = hass.ServiceUncheckTask
	}

	c.callAndRefresh(ctx, routineID, service, map[string]any{
		hass.AttrRoutineID: routineID,
		hass.AttrTaskIndex: index,
	}, noticeToggleFailed)
}

func (c *Card) resetRoutine(ctx context.Context, routineID string) {
	if routineID == "" {
		return
	}
	c.callAndRefresh(ctx, routineID, hass.ServiceResetRoutine, map[string]any{
		hass.AttrRoutineID: routineID,
	}, noticeResetFailed)
}

// callAndRefresh issues a service call, waits for the host to settle and
// makes the re-read routine the selection. A failed call is surfaced as a
// notice; settling and the re-read happen either way.
func (c *Card) callAndRefresh(ctx context.Context, routineID, service string, data map[string]any, failNotice string) {
	entity := c.Config().Entity

	var changed <-chan struct{}
	if n, ok := c.host.(ChangeNotifier); ok {
		ch, stop := n.Changed(entity)
		defer stop()
		changed = ch
	}

	err := c.host.CallService(ctx, hass.Domain, service, data)
	c.observe(ctx, service, data, err)

	if err != nil {
		c.opts.Logger.Error("service call failed", "service", service, "routine_id", routineID, "error", err)
		c.mu.Lock()
		c.view.Notice = failNotice
		c.mu.Unlock()
	}
	c.settle(ctx, changed)

	routine, ok := c.lookup(routineID)
	c.mu.Lock()
	if ok {
		c.view.SelectedRoutine = &routine
	} else {
		c.view.SelectedRoutine = nil
	}
	c.mu.Unlock()
}

// settle waits for the host to push the entity again, bounded by the
// settle delay. Hosts without change notification get the plain delay.
func (c *Card) settle(ctx context.Context, changed <-chan struct{}) {
	timer := time.NewTimer(c.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-changed:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (c *Card) observe(ctx context.Context, service string, data map[string]any, err error) {
	if c.opts.OnCall == nil {
		return
	}
	call := model.ServiceCall{
		Domain:    hass.Domain,
		Service:   service,
		Payload:   data,
		Success:   err == nil,
		CreatedAt: c.opts.Now().UTC(),
	}
	if err != nil {
		call.Error = err.Error()
	}
	c.opts.OnCall(ctx, call)
}

// lookup finds a routine by id in the current daily entity state.
func (c *Card) lookup(routineID string) (model.Routine, bool) {
	if routineID == "" {
		return model.Routine{}, false
	}
	entity, ok := c.host.State(c.Config().Entity)
	if !ok {
		return model.Routine{}, false
	}
	return entity.Daily().FindRoutine(routineID)
}
