package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pait-backend/internal/artifacts"
	"pait-backend/internal/intent"
	"pait-backend/internal/queue"
	"pait-backend/internal/quota"
	"pait-backend/internal/shared/metrics"
	"pait-backend/internal/shared/telemetry"
	"pait-backend/internal/specialist"
	"pait-backend/internal/synthesis"
	"pait-backend/internal/vault"
)

const (
	defaultSessionTimeout = 15 * time.Second
	defaultSealGrace      = 2 * time.Second

	// Token price of one billable specialist invocation.
	tokensPerSpecialistCall = 10
)

var (
	// ErrAllSpecialistsFailed surfaces when zero roles produced a result.
	ErrAllSpecialistsFailed = errors.New("all specialists failed")
	// ErrNotCompleted indicates the session has no outcome yet.
	ErrNotCompleted = errors.New("session not completed")
	// ErrNotCancellable indicates the session already reached a terminal state.
	ErrNotCancellable = errors.New("session is not running")
	// ErrSessionFailed wraps a terminal failure when awaiting an outcome.
	ErrSessionFailed = errors.New("session failed")
)

// Service drives the session state machine: resolve intent, reserve quota,
// fan out one invocation per required role, join, synthesize, seal.
type Service struct {
	Repo      Repo
	Ledger    *quota.Ledger
	Catalog   *intent.Catalog
	Pool      *specialist.Pool
	Artifacts *artifacts.Service
	Sealer    *vault.Sealer
	Queue     queue.Client // optional seal re-drive queue

	SessionTimeout time.Duration
	SealGrace      time.Duration

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool
	mu        sync.Mutex
}

func (l *liveSession) markCancelled() {
	l.mu.Lock()
	l.cancelled = true
	l.mu.Unlock()
	l.cancel()
}

func (l *liveSession) wasCancelled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelled
}

// NewService constructs a Service with default deadlines.
func NewService(repo Repo, ledger *quota.Ledger, catalog *intent.Catalog, pool *specialist.Pool, artifactSvc *artifacts.Service, sealer *vault.Sealer) *Service {
	return &Service{
		Repo:           repo,
		Ledger:         ledger,
		Catalog:        catalog,
		Pool:           pool,
		Artifacts:      artifactSvc,
		Sealer:         sealer,
		SessionTimeout: defaultSessionTimeout,
		SealGrace:      defaultSealGrace,
		live:           make(map[string]*liveSession),
	}
}

// costForIntent prices one run. Billable roles each cost tokens; a session
// that needs any specialist consumes exactly one daily agent-call slot,
// however many specialists the intent fans out to.
func costForIntent(in intent.Intent) quota.Cost {
	var cost quota.Cost
	for _, role := range in.Roles {
		if role.Billable() {
			cost.Tokens += tokensPerSpecialistCall
		}
	}
	if cost.Tokens > 0 {
		cost.SpecialistCalls = 1
	}
	return cost
}

// Start accepts a new session synchronously: intent and quota are checked
// here and can reject immediately; the fan-out runs asynchronously.
func (s *Service) Start(ctx context.Context, subjectID string, tier quota.Tier, intentID, artifactID string) (Session, error) {
	if subjectID == "" {
		return Session{}, errors.New("subject id is required")
	}
	if !tier.Valid() {
		tier = quota.TierFree
	}

	in, err := s.Catalog.Resolve(intentID)
	if err != nil {
		return Session{}, err
	}
	artifact, err := s.Artifacts.Get(ctx, subjectID, artifactID)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		SubjectTier:  string(tier),
		IntentID:     in.ID,
		ArtifactID:   artifact.ID,
		State:        StateCreated,
		RoleStatuses: pendingStatuses(in.Roles),
		CreatedAt:    time.Now().UTC(),
	}

	cost := costForIntent(in)
	if err := s.Ledger.Reserve(ctx, subjectID, tier, cost); err != nil {
		if quota.Denied(err) {
			session.State = StateFailed
			session.FailureReason = ReasonQuota
			now := time.Now().UTC()
			session.CompletedAt = &now
			if createErr := s.Repo.Create(ctx, session); createErr != nil {
				telemetry.Error("session.persist_failed", map[string]any{
					"session_id": session.ID,
					"subject_id": subjectID,
					"error":      createErr.Error(),
				})
			}
			return session, err
		}
		return Session{}, err
	}

	session.State = StateQuotaChecked
	if err := s.Repo.Create(ctx, session); err != nil {
		s.Ledger.Release(subjectID, cost)
		return Session{}, err
	}

	ls := &liveSession{done: make(chan struct{})}
	runCtx, cancel := context.WithCancel(backgroundWithRequestID(ctx))
	ls.cancel = cancel
	s.mu.Lock()
	s.live[session.ID] = ls
	s.mu.Unlock()

	metrics.IncSessionStarted()
	s.logTransition(ctx, session, "created->quota_checked")

	go s.run(runCtx, ls, session, in, artifact.Ref(), tier, cost)

	return session, nil
}

// run executes the session to its terminal state. It owns the session
// record exclusively until done is closed.
func (s *Service) run(ctx context.Context, ls *liveSession, session Session, in intent.Intent, ref specialist.ArtifactRef, tier quota.Tier, cost quota.Cost) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, &session, ReasonInternal, fmt.Errorf("panic: %v", r))
			s.Ledger.Release(session.SubjectID, cost)
		}
		s.finish(session.ID, ls)
	}()

	timeout := s.SessionTimeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Cancelled before dispatch: no worker launches and nothing is charged.
	if ls.wasCancelled() {
		s.Ledger.Release(session.SubjectID, cost)
		s.fail(ctx, &session, ReasonCancelled, context.Canceled)
		return
	}

	// Fan out: every role launches before any result is awaited.
	session.State = StateDispatched
	for role := range session.RoleStatuses {
		st := session.RoleStatuses[role]
		st.Status = RoleStatusRunning
		session.RoleStatuses[role] = st
	}
	s.persist(ctx, &session, "quota_checked->dispatched")

	var resMu sync.Mutex
	results := make(map[specialist.Role]specialist.Result, len(in.Roles))
	failures := make(map[specialist.Role]error, len(in.Roles))

	g, groupCtx := errgroup.WithContext(runCtx)
	for _, role := range in.Roles {
		role := role
		g.Go(func() error {
			res, err := s.Pool.Invoke(groupCtx, role, ref)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				failures[role] = err
			} else {
				results[role] = res
			}
			return nil
		})
	}

	session.State = StateCollecting
	s.persist(ctx, &session, "dispatched->collecting")

	_ = g.Wait()

	if ls.wasCancelled() {
		// Results of already-launched calls are discarded and nothing is
		// charged.
		s.Ledger.Release(session.SubjectID, cost)
		session.Results = nil
		s.fail(ctx, &session, ReasonCancelled, context.Canceled)
		return
	}

	for role, res := range results {
		st := session.RoleStatuses[role]
		st.Status = RoleStatusSucceeded
		session.RoleStatuses[role] = st
		if session.Results == nil {
			session.Results = make(map[specialist.Role]specialist.Result, len(results))
		}
		session.Results[role] = res
	}
	for role, err := range failures {
		st := session.RoleStatuses[role]
		st.Status = RoleStatusFailed
		st.ErrorKind = specialist.KindOf(err)
		session.RoleStatuses[role] = st
		telemetry.Warn("session.role_failed", map[string]any{
			"session_id": session.ID,
			"subject_id": session.SubjectID,
			"role":       role.String(),
			"error_kind": string(st.ErrorKind),
			"error":      err.Error(),
		})
	}

	if len(results) == 0 {
		s.Ledger.Release(session.SubjectID, cost)
		s.fail(ctx, &session, ReasonAllFailed, ErrAllSpecialistsFailed)
		return
	}

	// Every launched role consumed its backend whether or not it errored,
	// so a partial failure still charges the full reservation.
	commitCtx, commitCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer commitCancel()
	if err := s.Ledger.Commit(commitCtx, session.SubjectID, tier, cost); err != nil {
		telemetry.Error("session.quota_commit_failed", map[string]any{
			"session_id": session.ID,
			"subject_id": session.SubjectID,
			"error":      err.Error(),
		})
	}

	session.State = StateSynthesizing
	s.persist(ctx, &session, "collecting->synthesizing")

	successes := make([]specialist.Result, 0, len(results))
	for _, res := range results {
		successes = append(successes, res)
	}
	composite, err := synthesis.Synthesize(successes, len(in.Roles))
	if err != nil {
		s.fail(ctx, &session, ReasonInternal, err)
		return
	}
	session.Composite = &composite
	if composite.Degraded {
		metrics.IncSessionDegraded()
	}

	completedAt := time.Now().UTC()
	session.CompletedAt = &completedAt
	session.SealStatus = SealStatusPending
	session.State = StateSealed
	s.persist(ctx, &session, "synthesizing->sealed")

	// The pending status is already durable, so a late background seal can
	// only move it forward.
	s.seal(ctx, &session)
	if session.SealStatus != SealStatusPending {
		s.persist(ctx, &session, "seal_settled")
	}

	metrics.IncSessionCompleted()
	metrics.ObserveSessionDurationMs(float64(completedAt.Sub(session.CreatedAt).Microseconds()) / 1000.0)
}

// seal runs the vault write with a short grace window. Past the grace the
// session returns with sealStatus pending and the seal finishes in the
// background or via the queue.
func (s *Service) seal(ctx context.Context, session *Session) {
	grace := s.SealGrace
	if grace <= 0 {
		grace = defaultSealGrace
	}

	input := vault.SealInput{
		SessionID:          session.ID,
		SubjectID:          session.SubjectID,
		SubjectTier:        session.SubjectTier,
		IntentID:           session.IntentID,
		Composite:          *session.Composite,
		SessionCreatedAt:   session.CreatedAt,
		SessionCompletedAt: *session.CompletedAt,
	}

	sealCtx := context.WithoutCancel(ctx)
	type sealOutcome struct {
		rec vault.SealedRecord
		err error
	}
	done := make(chan sealOutcome, 1)
	go func() {
		rec, err := s.Sealer.Seal(sealCtx, input)
		done <- sealOutcome{rec: rec, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			metrics.IncSealFailed()
			session.SealStatus = SealStatusFailed
			telemetry.Error("session.seal_failed", map[string]any{
				"session_id": session.ID,
				"subject_id": session.SubjectID,
				"error":      out.err.Error(),
			})
			s.enqueueSealRetry(sealCtx, session.ID)
			return
		}
		session.SealStatus = SealStatusSealed
		session.SealRecordID = out.rec.RecordID
	case <-time.After(grace):
		session.SealStatus = SealStatusPending
		sessionID := session.ID
		go func() {
			out := <-done
			if out.err != nil {
				metrics.IncSealFailed()
				telemetry.Error("session.seal_failed", map[string]any{
					"session_id": sessionID,
					"error":      out.err.Error(),
				})
				s.enqueueSealRetry(sealCtx, sessionID)
				return
			}
			s.recordSeal(sealCtx, sessionID, out.rec.RecordID)
		}()
		s.enqueueSealRetry(sealCtx, sessionID)
	}
}

// recordSeal updates a persisted session after a late seal lands.
func (s *Service) recordSeal(ctx context.Context, sessionID, recordID string) {
	session, err := s.Repo.GetByID(ctx, sessionID)
	if err != nil {
		return
	}
	if session.SealStatus == SealStatusSealed {
		return
	}
	session.SealStatus = SealStatusSealed
	session.SealRecordID = recordID
	if err := s.Repo.Update(ctx, session); err != nil {
		telemetry.Error("session.seal_record_update_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (s *Service) enqueueSealRetry(ctx context.Context, sessionID string) {
	if s.Queue == nil {
		return
	}
	msg := queue.Message{
		SessionID:  sessionID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("session.seal_enqueue_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// RedriveSeal retries sealing for a completed session. Safe to call any
// number of times because Seal is idempotent.
func (s *Service) RedriveSeal(ctx context.Context, sessionID string) error {
	session, err := s.Repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State != StateSealed || session.Composite == nil || session.CompletedAt == nil {
		return fmt.Errorf("session %s has no composite to seal", sessionID)
	}
	if session.SealStatus == SealStatusSealed {
		return nil
	}
	rec, err := s.Sealer.Seal(ctx, vault.SealInput{
		SessionID:          session.ID,
		SubjectID:          session.SubjectID,
		SubjectTier:        session.SubjectTier,
		IntentID:           session.IntentID,
		Composite:          *session.Composite,
		SessionCreatedAt:   session.CreatedAt,
		SessionCompletedAt: *session.CompletedAt,
	})
	if err != nil {
		metrics.IncSealFailed()
		return err
	}
	s.recordSeal(ctx, sessionID, rec.RecordID)
	return nil
}

// SweepSealPending re-drives every session stuck short of a durable seal.
// This is the safety net for deployments without a seal queue, where a
// failed background seal would otherwise stay pending forever.
func (s *Service) SweepSealPending(ctx context.Context, limit int) {
	sessions, err := s.Repo.ListSealPending(ctx, limit)
	if err != nil {
		telemetry.Error("session.seal_sweep_failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	for _, session := range sessions {
		if err := s.RedriveSeal(ctx, session.ID); err != nil {
			telemetry.Warn("session.seal_redrive_failed", map[string]any{
				"session_id": session.ID,
				"subject_id": session.SubjectID,
				"error":      err.Error(),
			})
		}
	}
}

// RunSealSweeper sweeps on an interval until ctx is done.
func (s *Service) RunSealSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepSealPending(ctx, 50)
		}
	}
}

// Status returns a read-only snapshot for polling clients.
func (s *Service) Status(ctx context.Context, sessionID string) (StatusSnapshot, error) {
	session, err := s.Repo.GetByID(ctx, sessionID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{
		SessionID:     session.ID,
		State:         session.State,
		FailureReason: session.FailureReason,
		PerRoleStatus: orderedRoleStatuses(session),
		SealStatus:    session.SealStatus,
	}, nil
}

// AwaitResult blocks until the session reaches a terminal state or ctx is
// done, then returns the composite outcome.
func (s *Service) AwaitResult(ctx context.Context, sessionID string) (Outcome, error) {
	s.mu.Lock()
	ls, running := s.live[sessionID]
	s.mu.Unlock()

	if running {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-ls.done:
		}
	}

	session, err := s.Repo.GetByID(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	switch {
	case session.State == StateFailed:
		return Outcome{}, fmt.Errorf("%w: %s", ErrSessionFailed, session.FailureReason)
	case session.State != StateSealed || session.Composite == nil:
		return Outcome{}, ErrNotCompleted
	}
	return Outcome{
		SessionID:    session.ID,
		Composite:    *session.Composite,
		Degraded:     session.Composite.Degraded,
		SealStatus:   session.SealStatus,
		SealRecordID: session.SealRecordID,
	}, nil
}

// Cancel aborts a running session. Before dispatch nothing has been
// charged; during collect, worker calls run to completion but their
// results are discarded and the reservation is released.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	ls, running := s.live[sessionID]
	s.mu.Unlock()
	if !running {
		if _, err := s.Repo.GetByID(ctx, sessionID); err != nil {
			return err
		}
		return ErrNotCancellable
	}
	ls.markCancelled()
	return nil
}

// List returns a subject's sessions, newest first.
func (s *Service) List(ctx context.Context, subjectID string, limit, offset int) ([]Session, error) {
	if subjectID == "" {
		return nil, errors.New("subject id is required")
	}
	return s.Repo.ListBySubject(ctx, subjectID, limit, offset)
}

func (s *Service) fail(ctx context.Context, session *Session, reason string, cause error) {
	session.State = StateFailed
	session.FailureReason = reason
	now := time.Now().UTC()
	session.CompletedAt = &now
	s.persist(ctx, session, "->failed")
	metrics.IncSessionFailed()
	fields := map[string]any{
		"session_id": session.ID,
		"subject_id": session.SubjectID,
		"reason":     reason,
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	telemetry.Warn("session.failed", fields)
}

func (s *Service) persist(ctx context.Context, session *Session, transition string) {
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Repo.Update(updateCtx, *session); err != nil {
		telemetry.Error("session.persist_failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
	s.logTransition(ctx, *session, transition)
}

func (s *Service) finish(sessionID string, ls *liveSession) {
	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()
	close(ls.done)
}

func (s *Service) logTransition(ctx context.Context, session Session, transition string) {
	telemetry.Info("session.status", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"subject_id":       session.SubjectID,
		"session_id":       session.ID,
		"intent_id":        session.IntentID,
		"state":            string(session.State),
		"state_transition": transition,
	})
}

func pendingStatuses(roles []specialist.Role) map[specialist.Role]RoleStatus {
	out := make(map[specialist.Role]RoleStatus, len(roles))
	for _, role := range roles {
		out[role] = RoleStatus{Role: role, Status: RoleStatusPending}
	}
	return out
}

// orderedRoleStatuses lists statuses in the stable role order. Sessions
// reloaded without live statuses derive them from the recorded results.
func orderedRoleStatuses(session Session) []RoleStatus {
	if len(session.RoleStatuses) > 0 {
		out := make([]RoleStatus, 0, len(session.RoleStatuses))
		for _, role := range specialist.AllRoles() {
			if st, ok := session.RoleStatuses[role]; ok {
				out = append(out, st)
			}
		}
		return out
	}
	var out []RoleStatus
	for _, role := range specialist.AllRoles() {
		if res, ok := session.Results[role]; ok {
			out = append(out, RoleStatus{Role: res.Role, Status: RoleStatusSucceeded})
		}
	}
	return out
}
