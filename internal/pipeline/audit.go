package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// AuditRecorder stores every prompt/response pair of a run. Recording errors
// are logged and never affect the run.
type AuditRecorder interface {
	BeginRun(ctx context.Context, id uuid.UUID, variant, request string) error
	RecordExchange(ctx context.Context, ex Exchange) error
	FinishRun(ctx context.Context, out Outcome) error
}

func (o *Orchestrator) beginRun(ctx context.Context, job Job) {
	if o.audit == nil {
		return
	}
	if err := o.audit.BeginRun(context.WithoutCancel(ctx), job.RunID, job.Variant, job.Request); err != nil {
		o.log.WarnContext(ctx, "Failed to record run start", "run_id", job.RunID, "error", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, ex Exchange) {
	if o.audit == nil {
		return
	}
	if err := o.audit.RecordExchange(context.WithoutCancel(ctx), ex); err != nil {
		o.log.WarnContext(ctx, "Failed to record exchange", "run_id", ex.RunID, "stage", ex.Stage, "error", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, out Outcome) {
	if o.audit == nil {
		return
	}
	if err := o.audit.FinishRun(context.WithoutCancel(ctx), out); err != nil {
		o.log.WarnContext(ctx, "Failed to record run end", "run_id", out.RunID, "error", err)
	}
}

// Abandon records a run that ends before any chunk is mapped: its
// preliminary exchanges and a failed outcome carrying reason.
func (o *Orchestrator) Abandon(ctx context.Context, job Job, reason error) {
	if job.RunID == uuid.Nil {
		job.RunID = uuid.New()
	}
	o.beginRun(ctx, job)
	for _, ex := range job.Preliminary {
		ex.RunID = job.RunID
		o.record(ctx, ex)
	}
	o.finishRun(ctx, Outcome{RunID: job.RunID, State: StateFailed, Reason: reason.Error()})
	o.log.InfoContext(ctx, "Run abandoned before mapping", "run_id", job.RunID, "variant", job.Variant, "reason", reason)
}
