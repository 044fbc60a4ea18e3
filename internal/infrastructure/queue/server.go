package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// NewServer builds the asynq server and the mux routing task types to the
// processor.
func NewServer(opt asynq.RedisConnOpt, concurrency int, p *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("[queue][server] task failed type=%s err=%v", task.Type(), err)
		}),
	})
	return srv, NewServeMux(p)
}

func NewServeMux(p *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProposalNotify, p.HandleNotifyTask)
	mux.HandleFunc(TypePortalSweep, p.HandleSweepTask)
	return mux
}

// NewScheduler registers the periodic sweep under cronspec (e.g. "@daily").
func NewScheduler(opt asynq.RedisConnOpt, cronspec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, nil)
	entryID, err := scheduler.Register(cronspec, asynq.NewTask(TypePortalSweep, nil), asynq.Queue(QueueCritical), asynq.MaxRetry(1))
	if err != nil {
		return nil, fmt.Errorf("register sweep %q: %w", cronspec, err)
	}
	log.Printf("[queue][scheduler] sweep registered cron=%q entry_id=%s", cronspec, entryID)
	return scheduler, nil
}
