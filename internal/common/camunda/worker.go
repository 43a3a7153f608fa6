// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"job-matcher/internal/common/config"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/common/observability"
	"job-matcher/pkg/registry"
)

// StartWorker opens a job worker for taskType. Disabled workers are skipped
// and nil is returned.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return w
}

// JobRunner holds what every task adapter needs to process one job.
type JobRunner struct {
	TaskType string
	Timeout  time.Duration
	Logger   logger.Logger
	Errors   *apperrors.ErrorHandler
	Obs      *observability.Observability
	// Activity, when set, validates raw job variables before decoding.
	Activity *registry.Activity
}

func NewJobRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &JobRunner{
		TaskType: taskType,
		Timeout:  timeout,
		Logger:   log,
		Errors:   apperrors.NewErrorHandler(log),
		Obs:      obs,
	}
	if reg, err := registry.Default(); err == nil {
		if a, ok := reg.Find(taskType); ok {
			r.Activity = a
		}
	}
	return r
}

// Run decodes the job variables into I, calls exec under the runner timeout
// and completes the job with the output, or routes the error through the
// ErrorHandler.
func Run[I any, O any](r *JobRunner, client worker.JobClient, job entities.Job, exec func(context.Context, *I) (*O, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Dec()

	r.Logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	if err := r.validate(job.Variables); err != nil {
		r.fail(ctx, client, job, start, err)
		return
	}

	var input I
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		r.fail(ctx, client, job, start, apperrors.NewInvalidInputError("parse variables: "+err.Error()))
		return
	}

	output, err := exec(ctx, &input)
	if err != nil {
		r.fail(ctx, client, job, start, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		r.fail(ctx, client, job, start, apperrors.NewInvalidInputError("encode output: "+err.Error()))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.Logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(time.Since(start).Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "completed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, time.Since(start), "completed")
	r.Logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (r *JobRunner) validate(variables string) error {
	if r.Activity == nil {
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return apperrors.NewInvalidInputError("parse variables: " + err.Error())
	}
	return r.Activity.ValidateInput(raw)
}

func (r *JobRunner) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	code := apperrors.AsStandardError(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, string(code)).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(time.Since(start).Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "failed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, time.Since(start), "failed")

	// the exec context may already be expired; reporting must still reach the broker
	r.Errors.HandleJobError(context.Background(), client, job, err)
}
