package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"

	"github.com/go-playground/validator/v10"
)

// HandlerFunc produces the single response of an action.
// progress is the connection's send path for intermediate messages.
type HandlerFunc func(ctx context.Context, msg Message, progress contract.ProgressSink) (domain.Response, error)

type Action struct {
	Schema Schema
	Handle HandlerFunc
}

// Dispatcher routes inbound messages to a fixed table of actions.
// The table is built once and only read afterwards, it is shared by all sessions.
type Dispatcher struct {
	log       *slog.Logger
	actions   map[domain.ActionName]Action
	store     contract.IChunkStore
	runner    contract.ITaskRunner
	validator *validator.Validate
}

func NewDispatcher(log *slog.Logger, store contract.IChunkStore, runner contract.ITaskRunner) *Dispatcher {
	d := &Dispatcher{
		log:       log,
		store:     store,
		runner:    runner,
		validator: newValidator(),
	}
	d.actions = map[domain.ActionName]Action{
		domain.ActionHandshake: {
			Handle: d.handshake,
		},
		domain.ActionRequestMedia: {
			Schema: Schema{
				{Name: "url", Kind: KindString},
				{Name: "width", Kind: KindInt, Optional: true},
				{Name: "height", Kind: KindInt, Optional: true},
			},
			Handle: d.requestMedia,
		},
		domain.ActionGetChunk: {
			Schema: Schema{
				{Name: "chunkindex", Kind: KindInt},
				{Name: "id", Kind: KindString},
			},
			Handle: d.getChunk,
		},
		domain.ActionGetVid: {
			Schema: Schema{
				{Name: "tracker", Kind: KindInt},
				{Name: "id", Kind: KindString},
				{Name: "width", Kind: KindInt},
				{Name: "height", Kind: KindInt},
			},
			Handle: d.getVid,
		},
	}
	return d
}

// Dispatch runs the action named by msg.
// ok is false when the action is missing or unknown, no response must be sent then.
// Handler errors and panics are converted into an error response.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, progress contract.ProgressSink) (resp domain.Response, ok bool) {
	name, _ := msg.Action()
	action, found := d.actions[domain.ActionName(name)]
	if !found {
		d.log.Debug("Ignoring unknown action", "action", name)
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Action panicked", "action", name, "panic", r)
			resp, ok = domain.NewErrorResponse(domain.MsgInternalError), true
		}
	}()

	if err := action.Schema.Validate(msg); err != nil {
		return domain.NewErrorResponse(err.Error()), true
	}

	resp, err := action.Handle(ctx, msg, progress)
	if err != nil {
		return domain.NewErrorResponse(d.publicMessage(name, err)), true
	}
	return resp, true
}

// publicMessage keeps file system details out of responses.
func (d *Dispatcher) publicMessage(action string, err error) string {
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr.Error()
	case errors.Is(err, errs.ErrUnsafeID):
		d.log.Warn("User tried to use special Characters", "action", action)
		return domain.MsgForbiddenID
	case errors.Is(err, context.Canceled):
		d.log.Debug("Action canceled", "action", action)
		return context.Canceled.Error()
	case errors.Is(err, errs.ErrInvalidField):
		return strings.TrimPrefix(err.Error(), errs.ErrInvalidField.Error()+": ")
	}

	for _, sentinel := range []error{
		errs.ErrUnsupportedURL,
		errs.ErrDownloadTimeout,
		errs.ErrQueueFull,
		errs.ErrToolNotFound,
		errs.ErrTranscodeFailed,
		errs.ErrUnsupportedMedia,
		errs.ErrWorkerPanic,
	} {
		if errors.Is(err, sentinel) {
			d.log.Warn("Action failed", "action", action, "error", err)
			return sentinel.Error()
		}
	}

	d.log.Error("Action failed", "action", action, "error", err)
	return domain.MsgInternalError
}
