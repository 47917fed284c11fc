package speech

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	StatePending = "PENDING"
	StateRunning = "RUNNING"
	StateDone    = "DONE"
	StateFailed  = "FAILED"
)

// Progress is a hint for polling clients, not a precise measure
type Progress struct {
	JobID   string `json:"job_id"`
	Percent int    `json:"percent"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// ProgressRegister maps job ids to their latest progress for the process lifetime.
// Writers replace whole values; readers see whatever value is currently there.
type ProgressRegister struct {
	cache         *cache.Cache
	assumedChunks int
}

func NewProgressRegister(assumedChunks int, ttl time.Duration) *ProgressRegister {
	if assumedChunks <= 0 {
		assumedChunks = 50
	}
	return &ProgressRegister{
		cache:         cache.New(ttl, ttl/2),
		assumedChunks: assumedChunks,
	}
}

func (r *ProgressRegister) Start(jobID string) {
	r.cache.Set(jobID, Progress{JobID: jobID, State: StatePending}, cache.DefaultExpiration)
}

// ChunkWritten records n chunks seen so far. The estimate never reaches 100 before Done.
func (r *ProgressRegister) ChunkWritten(jobID string, n int) {
	percent := n * 100 / r.assumedChunks
	if percent > 99 {
		percent = 99
	}
	r.cache.Set(jobID, Progress{JobID: jobID, Percent: percent, State: StateRunning}, cache.DefaultExpiration)
}

func (r *ProgressRegister) Done(jobID string) {
	r.cache.Set(jobID, Progress{JobID: jobID, Percent: 100, State: StateDone}, cache.DefaultExpiration)
}

func (r *ProgressRegister) Fail(jobID string, err error) {
	p := Progress{JobID: jobID, State: StateFailed}
	if current, ok := r.Get(jobID); ok {
		p.Percent = current.Percent
	}
	if err != nil {
		p.Error = err.Error()
	}
	r.cache.Set(jobID, p, cache.DefaultExpiration)
}

func (r *ProgressRegister) Get(jobID string) (Progress, bool) {
	if x, found := r.cache.Get(jobID); found {
		return x.(Progress), true
	}
	return Progress{}, false
}
