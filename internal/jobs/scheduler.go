package jobs

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work with an optional cron schedule. Jobs with
// an empty schedule are on-demand only.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler owns the cron instance and the registered jobs.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
		return
	}

	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("⏰ [%s] Starting scheduled job...", job.Name())
		if err := job.Run(context.Background()); err != nil {
			log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		} else {
			log.Printf("✅ [%s] Job completed successfully", job.Name())
		}
	})
	if err != nil {
		log.Printf("⚠️ Failed to schedule job %s: %v", job.Name(), err)
	} else {
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Job scheduler started with %d registered jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Job scheduler stopped")
}

// RunByName triggers a job manually, e.g. from an admin endpoint or a test.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Run(ctx)
		}
	}
	log.Printf("⚠️ Job with name '%s' not found", name)
	return nil
}
