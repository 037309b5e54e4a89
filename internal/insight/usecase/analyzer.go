package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	tusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/ai"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"

	"gorm.io/gorm"
)

const (
	analyzerComponent      = "analyzer"
	defaultExtractTimeout  = 2 * time.Minute
	defaultExtractAttempts = 3
	defaultExtractBackoff  = 2 * time.Second
)

// AnalysisStatus is the terminal state of one analysis run.
type AnalysisStatus string

const (
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
	AnalysisSkipped   AnalysisStatus = "skipped"
)

// AnalysisResult is the output of a completed run.
type AnalysisResult struct {
	Summary        string
	Context        string
	Insights       []*domain.Insight
	Discarded      int
	Provider       string
	Attempts       int
	ProcessingTime time.Duration
}

// AnalysisOutcome reports how a run ended. Err and ErrorCode are set for
// failed and skipped runs.
type AnalysisOutcome struct {
	TranscriptID string
	Status       AnalysisStatus
	Transcript   *tdomain.Transcript
	Result       *AnalysisResult
	Err          error
	ErrorCode    string
}

// Analyzer drives one transcript from uploaded to completed or failed. It
// does not notify or export.
type Analyzer struct {
	db          *gorm.DB
	transcripts trepo.TranscriptRepository
	insights    repository.InsightRepository
	machine     *tusecase.StatusMachine
	extractor   ai.Extractor
	areas       config.AreaKeywords
	threshold   float64
	timeout     time.Duration
	attempts    int
	backoff     time.Duration
	sleeper     func(context.Context, time.Duration) error
	now         func() time.Time
	logger      *slog.Logger
}

// AnalyzerOption customizes the analyzer.
type AnalyzerOption func(*Analyzer)

// WithExtractionTimeout bounds each extraction attempt.
func WithExtractionTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithExtractionAttempts sets the total number of extraction attempts.
func WithExtractionAttempts(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.attempts = n
		}
	}
}

// WithExtractionBackoff sets the wait between extraction attempts.
func WithExtractionBackoff(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		if d >= 0 {
			a.backoff = d
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) AnalyzerOption {
	return func(a *Analyzer) {
		if sleeper != nil {
			a.sleeper = sleeper
		}
	}
}

// WithAreaKeywords enables product-area tagging.
func WithAreaKeywords(areas config.AreaKeywords) AnalyzerOption {
	return func(a *Analyzer) {
		a.areas = areas
	}
}

// WithDedupThreshold overrides the similarity threshold.
func WithDedupThreshold(threshold float64) AnalyzerOption {
	return func(a *Analyzer) {
		if threshold > 0 && threshold <= 1 {
			a.threshold = threshold
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(db *gorm.DB, transcripts trepo.TranscriptRepository, insights repository.InsightRepository, machine *tusecase.StatusMachine, extractor ai.Extractor, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		db:          db,
		transcripts: transcripts,
		insights:    insights,
		machine:     machine,
		extractor:   extractor,
		threshold:   DefaultDedupThreshold,
		timeout:     defaultExtractTimeout,
		attempts:    defaultExtractAttempts,
		backoff:     defaultExtractBackoff,
		sleeper:     sleepContext,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", analyzerComponent)
	return a
}

// Analyze runs the full analysis of one transcript. It never panics past
// this boundary; every failure after the transcript was claimed ends in the
// failed state.
func (a *Analyzer) Analyze(ctx context.Context, transcriptID string) (outcome AnalysisOutcome) {
	outcome.TranscriptID = transcriptID
	logger := a.logger.With("transcript_id", transcriptID)
	started := time.Now()
	claimed := false

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panicked: %v", r)
			logger.Error("analysis panicked", "panic", r)
			if claimed {
				outcome = a.fail(ctx, transcriptID, err, logger)
			} else {
				outcome = AnalysisOutcome{TranscriptID: transcriptID, Status: AnalysisFailed, Err: err, ErrorCode: apperr.Code(err)}
			}
		}
	}()

	transcript, err := a.machine.Transition(ctx, transcriptID, tdomain.StatusAnalyzing)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrInvalidTransition) {
			logger.Info("analysis skipped, transcript is not awaiting analysis", "reason", err)
			return AnalysisOutcome{TranscriptID: transcriptID, Status: AnalysisSkipped, Err: err, ErrorCode: apperr.Code(err)}
		}
		logger.Error("failed to claim transcript", "error", err)
		return AnalysisOutcome{TranscriptID: transcriptID, Status: AnalysisFailed, Err: err, ErrorCode: apperr.Code(err)}
	}
	claimed = true
	logger.Info("analysis started", "title", transcript.Title)

	extraction, attempts, err := a.extract(ctx, transcript.RawText, logger)
	if err != nil {
		return a.fail(ctx, transcriptID, err, logger)
	}

	if _, err := a.machine.Transition(ctx, transcriptID, tdomain.StatusCompiling); err != nil {
		return a.fail(ctx, transcriptID, err, logger)
	}

	now := a.now()
	candidates := make([]*domain.Insight, 0, len(extraction.Insights))
	for _, raw := range extraction.Insights {
		if ins := BuildInsight(raw, transcript.ID, transcript.OwnerUserID, a.areas, now); ins != nil {
			candidates = append(candidates, ins)
		}
	}
	insights, discarded := Deduplicate(candidates, a.threshold)

	summary := strings.TrimSpace(extraction.Summary)
	contextType := strings.TrimSpace(extraction.Context)

	var completed *tdomain.Transcript
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := a.insights.WithTx(tx).CreateBatch(ctx, insights); err != nil {
			return apperr.Wrap(apperr.ErrTransient, analyzerComponent, "persist", "store insights", err)
		}
		t, err := a.machine.TransitionTx(ctx, tx, transcriptID, tdomain.StatusCompleted,
			map[string]interface{}{"summary": summary, "context_type": contextType},
			nil)
		if err != nil {
			return err
		}
		completed = t
		activity := tdomain.NewActivity(transcriptID, tdomain.ActivityAnalysisCompleted,
			fmt.Sprintf("Analysis completed with %d insights", len(insights)),
			map[string]interface{}{
				"insight_count":    len(insights),
				"candidate_count":  len(extraction.Insights),
				"discarded_count":  discarded,
				"provider":         extraction.Provider,
				"extract_attempts": attempts,
			})
		return a.transcripts.WithTx(tx).AddActivity(ctx, activity)
	})
	if err != nil {
		return a.fail(ctx, transcriptID, err, logger)
	}

	result := &AnalysisResult{
		Summary:        summary,
		Context:        contextType,
		Insights:       insights,
		Discarded:      discarded,
		Provider:       extraction.Provider,
		Attempts:       attempts,
		ProcessingTime: time.Since(started),
	}
	logger.Info("analysis completed",
		"insights", len(insights),
		"discarded", discarded,
		"duration_ms", result.ProcessingTime.Milliseconds())
	return AnalysisOutcome{TranscriptID: transcriptID, Status: AnalysisCompleted, Transcript: completed, Result: result}
}

// extract calls the extractor, retrying transient failures only.
func (a *Analyzer) extract(ctx context.Context, text string, logger *slog.Logger) (*ai.Extraction, int, error) {
	if a.extractor == nil {
		return nil, 0, apperr.Wrap(apperr.ErrConfiguration, analyzerComponent, "extract", "no extractor configured", nil)
	}
	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		if attempt > 1 {
			if err := a.sleeper(ctx, a.backoff*time.Duration(attempt-1)); err != nil {
				return nil, attempt - 1, apperr.Wrap(apperr.ErrTransient, analyzerComponent, "extract", "cancelled during backoff", err)
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		extraction, err := a.extractor.ExtractInsights(attemptCtx, text)
		cancel()
		if err == nil {
			if extraction == nil {
				extraction = &ai.Extraction{}
			}
			return extraction, attempt, nil
		}
		lastErr = err
		if !ai.IsTransient(err) || ctx.Err() != nil {
			return nil, attempt, apperr.Wrap(apperr.ErrExtraction, analyzerComponent, "extract", "extraction failed", err)
		}
		logger.Warn("extraction attempt failed", "attempt", attempt, "max_attempts", a.attempts, "error", err)
	}
	return nil, a.attempts, apperr.Wrap(apperr.ErrTransient, analyzerComponent, "extract",
		fmt.Sprintf("extraction failed after %d attempts", a.attempts), lastErr)
}

// fail moves the transcript to failed and records the error code.
func (a *Analyzer) fail(ctx context.Context, transcriptID string, cause error, logger *slog.Logger) AnalysisOutcome {
	code := apperr.Code(cause)
	logger.Error("analysis failed", "error", cause, "code", code)

	// The run's context may already be cancelled; the failure must still be recorded.
	ctx = context.WithoutCancel(ctx)
	var failed *tdomain.Transcript
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := a.machine.TransitionTx(ctx, tx, transcriptID, tdomain.StatusFailed, nil, map[string]interface{}{"error_code": code})
		if err != nil {
			return err
		}
		failed = t
		return a.transcripts.WithTx(tx).AddActivity(ctx, tdomain.NewActivity(transcriptID, tdomain.ActivityAnalysisFailed,
			"Analysis failed: "+cause.Error(), map[string]interface{}{"error_code": code}))
	})
	if err != nil {
		logger.Error("failed to record analysis failure", "error", err)
	}
	return AnalysisOutcome{TranscriptID: transcriptID, Status: AnalysisFailed, Transcript: failed, Err: cause, ErrorCode: code}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
