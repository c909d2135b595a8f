package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/metrics"
	"github.com/camden-git/vanshavalibackend/realtime"
)

// ErrStopped is returned for work submitted after Stop.
var ErrStopped = errors.New("relation generator stopped")

// RelationComputer computes the relations of one validated member.
type RelationComputer interface {
	Compute(ctx context.Context, serNo int64) (*kinship.Result, error)
}

type RelationJob struct {
	Ctx   context.Context
	SerNo int64
	RunID string
	done  chan<- jobResult
}

type jobResult struct {
	serNo int64
	count int
	err   error
}

// MemberCount is the number of relations stored for one member in a run.
type MemberCount struct {
	SerNo int64 `json:"serNo"`
	Count int   `json:"count"`
}

// GenerationSummary describes one materialization run.
type GenerationSummary struct {
	RunID          string        `json:"runId"`
	TotalGenerated int           `json:"totalGenerated"`
	Details        []MemberCount `json:"details"`
	Failed         []int64       `json:"failed,omitempty"`
	// Stale lists members whose rows were discarded because the graph or the
	// rules changed while they were being computed.
	Stale []int64 `json:"stale,omitempty"`
}

// RelationGenerator materializes computed relations into the relationships
// table with a fixed pool of workers.
type RelationGenerator struct {
	JobQueue chan RelationJob
	Computer RelationComputer
	DB       *sql.DB
	Hub      realtime.Broadcaster
	Wg       sync.WaitGroup
	StopChan chan struct{}
	stopOnce sync.Once
}

func NewRelationGenerator(computer RelationComputer, db *sql.DB, hub realtime.Broadcaster, queueSize, numWorkers int) *RelationGenerator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	gen := &RelationGenerator{
		JobQueue: make(chan RelationJob, queueSize),
		Computer: computer,
		DB:       db,
		Hub:      hub,
		StopChan: make(chan struct{}),
	}

	gen.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go gen.worker(i)
	}
	log.Printf("started %d relation worker(s) with queue size %d", numWorkers, queueSize)

	return gen
}

func (rg *RelationGenerator) worker(id int) {
	defer rg.Wg.Done()
	for {
		select {
		case job, ok := <-rg.JobQueue:
			if !ok {
				log.Printf("relation worker %d stopping: job queue closed", id)
				return
			}
			metrics.GenerationQueueDepth.Set(float64(len(rg.JobQueue)))
			count, err := rg.processJob(job)
			switch {
			case errors.Is(err, database.ErrStaleEpoch):
				metrics.GenerationJobs.WithLabelValues("stale").Inc()
			case err != nil:
				metrics.GenerationJobs.WithLabelValues("failed").Inc()
			default:
				metrics.GenerationJobs.WithLabelValues("ok").Inc()
			}
			if job.done != nil {
				job.done <- jobResult{serNo: job.SerNo, count: count, err: err}
			}

		case <-rg.StopChan:
			log.Printf("relation worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (rg *RelationGenerator) processJob(job RelationJob) (int, error) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// read before computing: an invalidation landing in between makes the write stale
	epoch, err := database.RelationshipEpoch(rg.DB)
	if err != nil {
		return 0, err
	}

	res, err := rg.Computer.Compute(ctx, job.SerNo)
	if err != nil {
		log.Printf("ERROR computing relations for member %d (run %s): %v", job.SerNo, job.RunID, err)
		return 0, err
	}

	rows := make([]database.Relationship, 0, len(res.Relations))
	for _, rel := range res.Relations {
		rows = append(rows, database.Relationship{
			FromSerNo:       job.SerNo,
			ToSerNo:         rel.Related.SerNo,
			Relation:        rel.RelationEnglish,
			RelationMarathi: rel.RelationMarathi,
			Generation:      rel.Generation,
			RunID:           job.RunID,
		})
	}
	if err := database.ReplaceRelationshipsFor(rg.DB, job.SerNo, epoch, rows); err != nil {
		if errors.Is(err, database.ErrStaleEpoch) {
			log.Printf("Warning: discarding relations of member %d (run %s): %v", job.SerNo, job.RunID, err)
			return 0, err
		}
		log.Printf("ERROR storing relations for member %d (run %s): %v", job.SerNo, job.RunID, err)
		return 0, err
	}
	return len(rows), nil
}

// GenerateAll computes and stores the relations of every member in serNos and
// waits for the run to finish. Members that fail are listed in the summary;
// the error is only set when the run itself could not complete.
func (rg *RelationGenerator) GenerateAll(ctx context.Context, serNos []int64) (*GenerationSummary, error) {
	summary := &GenerationSummary{RunID: uuid.NewString(), Details: []MemberCount{}}
	results := make(chan jobResult, len(serNos))

	queued := 0
	for _, serNo := range serNos {
		job := RelationJob{Ctx: ctx, SerNo: serNo, RunID: summary.RunID, done: results}
		select {
		case rg.JobQueue <- job:
			queued++
			metrics.GenerationQueueDepth.Set(float64(len(rg.JobQueue)))
		case <-ctx.Done():
			return nil, fmt.Errorf("generation run %s canceled after %d of %d members: %w", summary.RunID, queued, len(serNos), ctx.Err())
		case <-rg.StopChan:
			return nil, ErrStopped
		}
	}

	for i := 0; i < queued; i++ {
		select {
		case r := <-results:
			if errors.Is(r.err, database.ErrStaleEpoch) {
				summary.Stale = append(summary.Stale, r.serNo)
				continue
			}
			if r.err != nil {
				summary.Failed = append(summary.Failed, r.serNo)
				continue
			}
			summary.TotalGenerated += r.count
			summary.Details = append(summary.Details, MemberCount{SerNo: r.serNo, Count: r.count})
		case <-ctx.Done():
			return nil, fmt.Errorf("generation run %s canceled while waiting: %w", summary.RunID, ctx.Err())
		case <-rg.StopChan:
			return nil, ErrStopped
		}
	}

	sort.Slice(summary.Details, func(i, j int) bool { return summary.Details[i].SerNo < summary.Details[j].SerNo })
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i] < summary.Failed[j] })
	sort.Slice(summary.Stale, func(i, j int) bool { return summary.Stale[i] < summary.Stale[j] })

	log.Printf("generation run %s stored %d relation(s) for %d member(s), %d failed, %d stale",
		summary.RunID, summary.TotalGenerated, len(summary.Details), len(summary.Failed), len(summary.Stale))
	if rg.Hub != nil {
		rg.Hub.Broadcast(realtime.Event{
			Type:   realtime.EventRelationsGenerated,
			RunID:  summary.RunID,
			Status: "completed",
			Extra: map[string]interface{}{
				"members":        len(summary.Details),
				"totalGenerated": summary.TotalGenerated,
				"failed":         len(summary.Failed),
				"stale":          len(summary.Stale),
			},
		})
	}
	return summary, nil
}

func (rg *RelationGenerator) Stop() {
	rg.stopOnce.Do(func() {
		log.Println("stopping relation generator...")
		close(rg.StopChan)
		rg.Wg.Wait()
		log.Println("all relation workers stopped")
	})
}
