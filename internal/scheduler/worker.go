package scheduler

import (
	"context"
	"fmt"

	"agenda_backend/platform/apperr"
	"agenda_backend/platform/config"
	"agenda_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ConfirmationSender delivers the confirmation request for one meeting.
type ConfirmationSender interface {
	Send(ctx context.Context, meetingID int64) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender ConfirmationSender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender ConfirmationSender, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskConfirmationSend, w.HandleConfirmationSend)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// HandleConfirmationSend runs one confirmation.send task. Missing meetings
// and malformed payloads are not retried.
func (w *Worker) HandleConfirmationSend(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConfirmationSendPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	err = w.sender.Send(ctx, payload.MeetingID)
	switch {
	case err == nil:
		return nil
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
		w.log.Warn("confirmation request dropped", "meetingId", payload.MeetingID, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	default:
		return err
	}
}
