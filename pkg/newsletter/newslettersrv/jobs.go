package newslettersrv

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
)

// SendJobHandler runs the workflow for a newsletter.send job. Interrupted
// runs and infrastructure errors are retried by the job host; everything
// else has already been reported as failed and is not retried.
func SendJobHandler(w *Workflow) jobx.HandlerFunc {
	return func(ctx context.Context, job *jobx.JobInfo) error {
		var req newsletter.SendRequest
		if err := job.Decode(&req); err != nil {
			return jobx.Permanent(err)
		}
		ctx = kernel.WithTenant(ctx, req.TenantID)

		_, err := w.Run(ctx, &req)
		if err == nil {
			return nil
		}
		switch errx.TypeOf(err) {
		case errx.TypeInterrupted, errx.TypeExternal:
			return err
		default:
			return jobx.Permanent(err)
		}
	}
}
