// Package pipeline drives the map-reduce summarization of prompt chunks: one
// model call per chunk, then a reduction of the partial answers into a
// single text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/telellmgram/internal/chunk"
)

// Stage names attached to the context of every model call.
const (
	StageMap    = "map"
	StageReduce = "reduce"
)

// State is the state of one run.
type State string

const (
	StateIdle     State = "idle"
	StateMapping  State = "mapping"
	StateReducing State = "reducing"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

var (
	// ErrReductionFailed reports a failed reduce call. It is always wrapped
	// in a *ReductionError.
	ErrReductionFailed = errors.New("reduction failed")
	// ErrNoChunks is returned when a run is started without chunks.
	ErrNoChunks = errors.New("no chunks to map")
	// ErrRunDeadline is returned when the next paced call would start after
	// the run's deadline. It matches context.DeadlineExceeded.
	ErrRunDeadline = fmt.Errorf("next model call would start after the run deadline: %w", context.DeadlineExceeded)
)

// ReductionError carries the partials gathered before the reduction failed.
type ReductionError struct {
	Partials []Partial
	Reason   error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("%s after %d partials: %v", ErrReductionFailed, len(e.Partials), e.Reason)
}

func (e *ReductionError) Unwrap() []error {
	return []error{ErrReductionFailed, e.Reason}
}

// Partial is the model answer for one mapped chunk.
type Partial struct {
	Index    int
	Label    string
	Text     string
	Degraded bool
}

// Config bounds a run. Pacing is the minimum spacing between the model
// calls of one run.
type Config struct {
	Pacing      time.Duration
	Concurrency int
	MaxChars    int

	// DevelopmentSampling maps at most SampleCap randomly chosen chunks.
	DevelopmentSampling bool
	SampleCap           int
	// Rand drives sampling. Nil uses the global source.
	Rand *rand.Rand
}

// ReducePlan describes the reduction prompt.
type ReducePlan struct {
	Header  string
	Closing string
	// SkipSingleReduce returns a lone non-degraded partial as the final
	// text without a reduce call.
	SkipSingleReduce bool
}

// Job is one run request.
type Job struct {
	// RunID identifies the run. A nil id is replaced by a fresh one.
	RunID   uuid.UUID
	Variant string
	Request string
	Chunks  []chunk.Chunk
	// Labels optionally names the source of each chunk in the reduce prompt.
	Labels []string
	Reduce ReducePlan
	// Pacer is shared with calls made before the run. Nil creates one from
	// Config.Pacing.
	Pacer *Pacer
	// Preliminary exchanges, such as keyword derivation, are recorded with
	// the run.
	Preliminary []Exchange
}

// Outcome is the terminal result of a run.
type Outcome struct {
	RunID    uuid.UUID
	State    State
	Text     string
	Partials []Partial
	Degraded int
	Chunks   int
	Mapped   int
	Reason   string
}

// Exchange is one audited prompt/response pair.
type Exchange struct {
	RunID    uuid.UUID
	Stage    string
	Index    int
	Prompt   string
	Response string
	Degraded bool
	Latency  time.Duration
}
