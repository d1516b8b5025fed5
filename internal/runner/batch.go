package runner

import (
	"context"

	"github.com/gtmodkit/gtmulti/internal/launcher"
)

// BatchItem is the outcome for one input file of a batch run.
type BatchItem struct {
	Input  string
	Result launcher.RunResult
	Err    error
}

// BatchReport summarizes a whole batch.
type BatchReport struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
	Paused    bool // stopped early after too many consecutive failures
}

// RunBatch runs one operation across many inputs, sequentially and with
// captured output. After maxFailures consecutive failures the batch
// pauses instead of grinding through inputs a broken tool will reject.
func (r *Runner) RunBatch(ctx context.Context, reg launcher.Registration, operation string, inputs []string, maxFailures int) BatchReport {
	if maxFailures <= 0 {
		maxFailures = 3
	}

	var report BatchReport
	streak := 0

	for _, input := range inputs {
		if ctx.Err() != nil {
			report.Paused = true
			break
		}

		res, err := r.Launch(ctx, reg, launcher.LaunchRequest{
			Operation: operation,
			Input:     input,
			Captured:  true,
		})
		report.Items = append(report.Items, BatchItem{Input: input, Result: res, Err: err})

		if err != nil {
			report.Failed++
			streak++
			if streak >= maxFailures {
				r.logger.Warn("batch paused after consecutive failures",
					"tool", reg.ID, "operation", operation, "failures", streak)
				report.Paused = true
				break
			}
			continue
		}
		report.Succeeded++
		streak = 0
	}

	return report
}
