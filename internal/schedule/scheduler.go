package schedule

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"autopress/internal/tasks"
)

// Scheduler enqueues a plan check at every configured cron time. The check
// itself runs on a worker, so a slow publish never blocks the next trigger.
type Scheduler struct {
	s       *asynq.Scheduler
	entries []string
}

// NewScheduler registers one plan check per cron spec.
func NewScheduler(opt asynq.RedisConnOpt, specs []string, loc *time.Location) (*Scheduler, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no schedule times configured")
	}
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Errorf("Scheduled plan check could not be enqueued: %v", err)
				return
			}
			log.Infof("Enqueued plan check %s on queue %s", info.ID, info.Queue)
		},
	})

	sched := &Scheduler{s: s}
	for _, spec := range specs {
		task, err := tasks.NewPlanCheckTask("")
		if err != nil {
			return nil, err
		}
		id, err := s.Register(spec, task)
		if err != nil {
			return nil, fmt.Errorf("register schedule %q: %w", spec, err)
		}
		log.Infof("Registered plan check at %q (%s), entry %s", spec, loc, id)
		sched.entries = append(sched.entries, id)
	}
	return sched, nil
}

// Entries returns the registered entry ids.
func (s *Scheduler) Entries() []string { return s.entries }

// Run blocks until the process receives a termination signal.
func (s *Scheduler) Run() error {
	return s.s.Run()
}

// Shutdown stops the scheduler.
func (s *Scheduler) Shutdown() {
	s.s.Shutdown()
}
