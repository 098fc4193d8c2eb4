package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"formpilot/config"
	"formpilot/database"
	"formpilot/models"
	"formpilot/utils"
)

// AutomationPool bounds the number of concurrent detect/fill jobs. Each job
// gets its own browser context (a full renderer, memory-wise), so the pool is
// an explicit, injected object with fixed capacity rather than an ambient
// singleton.
type AutomationPool struct {
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64

	sessions *BrowserSessionManager
	detector *DetectionSession
	executor *AutofillExecutor
	profiles *ProfileStore
	shots    *ScreenshotService
	audit    *database.AuditStore
	cfg      config.AutomationConfig
}

func NewAutomationPool(
	cfg config.AutomationConfig,
	sessions *BrowserSessionManager,
	detector *DetectionSession,
	executor *AutofillExecutor,
	profiles *ProfileStore,
	shots *ScreenshotService,
	audit *database.AuditStore,
) *AutomationPool {
	capacity := cfg.MaxConcurrentJobs
	if capacity < 1 {
		capacity = 1
	}
	return &AutomationPool{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
		sessions: sessions,
		detector: detector,
		executor: executor,
		profiles: profiles,
		shots:    shots,
		audit:    audit,
		cfg:      cfg,
	}
}

// Capacity returns the configured concurrency limit.
func (p *AutomationPool) Capacity() int64 { return p.capacity }

// ActiveJobs returns the number of jobs currently holding a slot.
func (p *AutomationPool) ActiveJobs() int64 { return p.active.Load() }

func (p *AutomationPool) acquire(ctx context.Context) (release func(), err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("could not acquire job slot: %w", mapCtxErr(err))
	}
	p.active.Add(1)
	return func() {
		p.active.Add(-1)
		p.sem.Release(1)
	}, nil
}

// Detect runs one detection job against url inside its own browser context.
func (p *AutomationPool) Detect(ctx context.Context, url, method string) (models.FormFieldMap, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return models.FormFieldMap{}, err
	}
	defer release()

	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobBudget)
	defer cancel()

	session, err := p.sessions.OpenPage(jobCtx, url)
	if err != nil {
		return models.FormFieldMap{}, err
	}
	defer session.Close()

	fieldMap, err := p.detector.Detect(jobCtx, session, method)
	if err != nil {
		return models.FormFieldMap{}, err
	}
	fieldMap.URL = url
	utils.LogInfo("Detection job completed", map[string]interface{}{
		"url":                url,
		"method":             method,
		"fields":             len(fieldMap.Fields),
		"overall_confidence": fieldMap.OverallConfidence,
	})
	return fieldMap, nil
}

// Fill runs one full detect+fill job. The returned report is best-effort: a
// job that hits its wall-clock budget midway still yields the partial report
// together with ErrJobTimeout, and the caller decides what to make of it.
func (p *AutomationPool) Fill(ctx context.Context, url, profileRef string) (*models.FillReport, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	profile, err := p.profiles.Get(ctx, profileRef)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobBudget)
	defer cancel()

	session, err := p.sessions.OpenPage(jobCtx, url)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	fieldMap, err := p.detector.Detect(jobCtx, session, "hybrid")
	if err != nil {
		return nil, err
	}
	fieldMap.URL = url

	report := p.executor.Fill(jobCtx, fieldMap, profile, session)
	utils.LogInfo("Fill job completed", map[string]interface{}{
		"job_id":           jobID,
		"url":              url,
		"fields_filled":    report.FieldsFilled,
		"fields_attempted": report.FieldsAttempted,
		"success":          report.Success,
		"elapsed_ms":       report.TotalElapsedMS,
	})

	if p.shots != nil {
		if keys, err := p.shots.Archive(jobID, report.Screenshots); err != nil {
			log.Printf("Screenshot archival failed for job %s: %v", jobID, err)
		} else {
			report.ScreenshotKeys = keys
		}
	}

	if p.audit != nil {
		if err := p.audit.RecordFillJob(ctx, database.FillJobRecord{
			JobID:           jobID,
			URL:             url,
			FieldsFilled:    report.FieldsFilled,
			FieldsAttempted: report.FieldsAttempted,
			Success:         report.Success,
			ElapsedMS:       report.TotalElapsedMS,
			CreatedAt:       time.Now().UTC(),
		}); err != nil {
			log.Printf("Audit write failed for job %s: %v", jobID, err)
		}
	}

	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return report, ErrJobTimeout
	}
	return report, nil
}
