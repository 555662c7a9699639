package batch

import (
	"fmt"
	"time"
)

// Summary is the result of a pipeline run.
type Summary struct {
	Interrupted bool
	FannedOut   int
	Outcome     Outcome
	Passes      int
	Failed      int
	Sweeps      int
	Accepted    int
	Unrouted    int
	Vias        int
	Elapsed     time.Duration
}

func (s Summary) String() string {
	state := "completed"
	if s.Interrupted {
		state = "interrupted"
	}
	return fmt.Sprintf("%s in %v: %d unrouted, %d vias, %d failed after %d passes, %d optimizations",
		state, s.Elapsed.Round(time.Millisecond), s.Unrouted, s.Vias, s.Failed, s.Passes, s.Accepted)
}

// Pipeline runs the enabled stages of a job in order.
type Pipeline struct {
	job *Job
}

// NewPipeline creates a pipeline for j.
func NewPipeline(j *Job) *Pipeline {
	return &Pipeline{job: j}
}

// Job returns the job run by the pipeline.
func (p *Pipeline) Job() *Job { return p.job }

// RequestStop asks the running stage to stop at its next checkpoint.
func (p *Pipeline) RequestStop() {
	p.job.RequestStop()
}

// Start runs the pipeline on a new goroutine. The summary is sent on the
// returned channel, which is then closed.
func (p *Pipeline) Start() <-chan Summary {
	done := make(chan Summary, 1)
	go func() {
		defer close(done)
		done <- p.Run()
	}()
	return done
}

// Run executes fanout, autoroute and optimize as enabled by the settings.
func (p *Pipeline) Run() Summary {
	j := p.job
	s := j.Settings
	begin := time.Now()
	var sum Summary
	if err := s.Validate(); err != nil {
		j.Logger.Printf("[AUTOROUTE] %v", err)
		sum.Interrupted = true
		return sum
	}

	if s.WithFanout && !j.IsStopRequested() {
		sum.FannedOut = NewFanout(j).Board()
	}
	if s.WithAutoroute && !j.IsStopRequested() {
		a := NewAutorouter(j)
		sum.Outcome = a.Loop()
		sum.Passes = a.Passes
		sum.Failed = a.Failed
	}
	if s.WithPostroute && !j.IsStopRequested() {
		o := NewOptimizer(j)
		sum.Sweeps = o.Board()
		sum.Accepted = o.Accepted
	}

	sum.Interrupted = j.IsStopRequested()
	if sum.Outcome == Cancelled {
		sum.Interrupted = true
	}
	m := Measure(j.Board)
	sum.Unrouted, sum.Vias = m.Unrouted, m.Vias
	sum.Elapsed = time.Since(begin)
	j.report(Progress{Phase: PhaseDone, Failed: sum.Failed})
	j.Logger.Printf("[AUTOROUTE] %v", sum)
	return sum
}
