package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/provascan/provascan/internal/analyzer"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
)

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

// JobEvent is one message on a job's event stream. Progress events carry
// the analysis result that just completed.
type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Processed int                   `json:"processed,omitempty"`
	Result    *model.AnalysisResult `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Job is one tracked unit of work: a page scan or a single URL analysis.
type Job struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"` // "scan" | "analyze"
	URL       string        `json:"url"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Events    chan JobEvent `json:"-"`

	// Optional results:
	ScanResult     *model.PageScanResult `json:"scan_result,omitempty"`
	AnalysisResult *model.AnalysisResult `json:"analysis_result,omitempty"`
}

// Orchestrator owns the analyzer and the job table. Server handlers and the
// CLI go through it rather than touching pipeline components directly.
type Orchestrator struct {
	cfg      *Config
	analyzer *analyzer.Analyzer
	logger   logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
}

// NewOrchestrator ties together config, analyzer and logger.
func NewOrchestrator(cfg *Config, an *analyzer.Analyzer, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		cfg:      cfg,
		analyzer: an,
		logger:   logging.OrNop(logger),
	}
}

// Analyzer exposes the underlying analyzer for synchronous calls.
func (o *Orchestrator) Analyzer() *analyzer.Analyzer { return o.analyzer }

func (o *Orchestrator) ensureJobMaps() {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobs == nil {
		o.jobs = make(map[string]*Job)
	}
	if o.jobCancels == nil {
		o.jobCancels = make(map[string]context.CancelFunc)
	}
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) setJob(job *Job) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobs == nil {
		o.jobs = make(map[string]*Job)
	}
	o.jobs[job.ID] = job
}

func (o *Orchestrator) setCancel(jobID string, cancel context.CancelFunc) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobCancels == nil {
		o.jobCancels = make(map[string]context.CancelFunc)
	}
	o.jobCancels[jobID] = cancel
}

func (o *Orchestrator) deleteCancel(jobID string) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	delete(o.jobCancels, jobID)
}

func (o *Orchestrator) getCancel(jobID string) context.CancelFunc {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobCancels[jobID]
}

// newJob registers a fresh pending job and its cancel func, and emits the
// initial pending event.
func (o *Orchestrator) newJob(ctx context.Context, jobType, url string) (*Job, context.Context) {
	o.ensureJobMaps()

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		URL:       url,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}
	o.setJob(job)

	jobCtx, cancel := context.WithCancel(ctx)
	o.setCancel(job.ID, cancel)

	o.emitJobEvent(job.ID, JobEvent{
		JobID:  job.ID,
		Type:   JobEventStatus,
		Status: JobPending,
	})
	return job, jobCtx
}

// finishJob records the terminal state, emits the closing event, and closes
// the event channel so websocket readers terminate cleanly.
func (o *Orchestrator) finishJob(jobID string, jobCtx context.Context, jobErr error, apply func(*Job)) {
	status := JobDone
	errMsg := ""
	evType := JobEventResult

	select {
	case <-jobCtx.Done():
		status = JobCanceled
		errMsg = jobCtx.Err().Error()
		evType = JobEventStatus
	default:
		if jobErr != nil {
			status = JobFailed
			errMsg = jobErr.Error()
			evType = JobEventStatus
		}
	}

	o.jobsMu.Lock()
	if j, ok := o.jobs[jobID]; ok {
		j.Status = status
		j.Error = errMsg
		j.EndedAt = time.Now().UTC()
		if status == JobDone && apply != nil {
			apply(j)
		}
	}
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   evType,
		Status: status,
		Error:  errMsg,
	})

	o.deleteCancel(jobID)

	o.jobsMu.Lock()
	j := o.jobs[jobID]
	o.jobsMu.Unlock()
	if j != nil && j.Events != nil {
		close(j.Events)
	}
}

// StartScanJob launches an asynchronous page scan. Per-candidate results
// stream as progress events on the job's channel.
func (o *Orchestrator) StartScanJob(ctx context.Context, pageURL string, limit int) (*Job, error) {
	job, jobCtx := o.newJob(ctx, "scan", pageURL)

	go func() {
		o.markRunning(job.ID)

		processed := 0
		res, err := o.analyzer.ScanPage(jobCtx, pageURL, limit, func(r *model.AnalysisResult) {
			processed++
			o.emitJobEvent(job.ID, JobEvent{
				JobID:     job.ID,
				Type:      JobEventProgress,
				Processed: processed,
				Result:    r,
			})
		})

		o.finishJob(job.ID, jobCtx, err, func(j *Job) {
			j.ScanResult = res
		})
	}()

	return job, nil
}

// StartAnalyzeJob launches an asynchronous single-URL analysis.
func (o *Orchestrator) StartAnalyzeJob(ctx context.Context, url string, skipPixels bool) (*Job, error) {
	job, jobCtx := o.newJob(ctx, "analyze", url)

	go func() {
		o.markRunning(job.ID)

		res := o.analyzer.AnalyzeURL(jobCtx, url, skipPixels)

		o.finishJob(job.ID, jobCtx, nil, func(j *Job) {
			j.AnalysisResult = res
		})
	}()

	return job, nil
}

func (o *Orchestrator) markRunning(jobID string) {
	o.jobsMu.Lock()
	if j, ok := o.jobs[jobID]; ok {
		j.Status = JobRunning
	}
	o.jobsMu.Unlock()
	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   JobEventStatus,
		Status: JobRunning,
	})
}

func (o *Orchestrator) CancelJob(jobID string) {
	cancel := o.getCancel(jobID)
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	return j
}

func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	jobs := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// Shutdown cancels all running jobs and waits briefly for them to settle.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.jobsMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.jobCancels))
	for _, c := range o.jobCancels {
		cancels = append(cancels, c)
	}
	o.jobsMu.Unlock()

	for _, c := range cancels {
		c()
	}

	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		o.jobsMu.Lock()
		pending := len(o.jobCancels)
		o.jobsMu.Unlock()
		if pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-tick.C:
		}
	}
}
