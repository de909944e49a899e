// Package scheduler runs the periodic autosave of active sessions.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"parley/internal/engine"
	"parley/internal/memory"
	"parley/internal/observability"
	"parley/internal/session"
)

// Autosaver snapshots every active session on a cron schedule so a
// crash loses at most one interval of conversation.
type Autosaver struct {
	cron     *cron.Cron
	sessions *session.Manager
	archive  memory.Archive
	metrics  *observability.Metrics
}

func NewAutosaver(sessions *session.Manager, archive memory.Archive, metrics *observability.Metrics) *Autosaver {
	return &Autosaver{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		archive:  archive,
		metrics:  metrics,
	}
}

// Start registers the autosave job and starts the cron runner. The
// spec argument uses robfig/cron syntax, e.g. "@every 5m".
func (a *Autosaver) Start(spec string) error {
	if _, err := a.cron.AddFunc(spec, a.saveAll); err != nil {
		return err
	}
	a.cron.Start()
	log.Printf("autosave scheduled: %s", spec)
	return nil
}

// Stop halts the runner and waits for a running save to finish.
func (a *Autosaver) Stop() {
	<-a.cron.Stop().Done()
}

// SaveSession archives one session now. Used by the expire hook and
// graceful shutdown as well as the cron job.
func (a *Autosaver) SaveSession(ctx context.Context, id string, eng *engine.Engine) {
	if eng.Stats().TotalMessages == 0 {
		return
	}
	if err := eng.SaveTo(ctx, a.archive, id); err != nil {
		a.metrics.ObserveArchiveOp("autosave", "error")
		log.Printf("autosave session %s: %v", id, err)
		return
	}
	a.metrics.ObserveArchiveOp("autosave", "ok")
}

func (a *Autosaver) saveAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, meta := range a.sessions.Active() {
		eng, err := a.sessions.Engine(meta.ID)
		if err != nil {
			continue
		}
		a.SaveSession(ctx, meta.ID, eng)
	}
}
