// Package credit owns the per-user credit score and ban state: point
// deductions for violations, the posting admission gate, and the
// scheduled rehabilitation and weekly reset sweeps.
package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campusforum/internal/database"
	"campusforum/internal/metrics"
	"campusforum/internal/models"
	"campusforum/internal/tracing"
)

const (
	// InitialScore is assigned at registration and restored by the
	// weekly reset.
	InitialScore = 100

	// AdmissionThreshold gates posting and commenting. A score below
	// it triggers a ban; rehabilitation after a ban restores the
	// score to exactly this value.
	AdmissionThreshold = 80

	// BanDuration is fixed once a ban is imposed. Further violations
	// while a ban is active never extend or restart it.
	BanDuration = 24 * time.Hour

	// PostViolationPoints and CommentViolationPoints are the fixed
	// deductions per content type.
	PostViolationPoints    = 5
	CommentViolationPoints = 1
)

// metaKeyWeeklyResetNextRun persists the weekly reset schedule so the
// sweep can be poked at any frequency without double-firing.
const metaKeyWeeklyResetNextRun = "weekly_reset_next_run"

// Engine maintains credit scores and bans against an injected store.
// All mutating operations are transactional and safe under
// at-least-once, overlapping invocation.
type Engine struct {
	store database.Store
	now   func() time.Time
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the forum timezone used to schedule the weekly
// reset. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// NewEngine creates a credit engine backed by the given store.
func NewEngine(store database.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time. The violation recorder uses
// it so its timestamps line up with the score mutations it triggers.
func (e *Engine) Now() time.Time {
	return e.now()
}

// DeductionResult reports the outcome of a point deduction.
type DeductionResult struct {
	NewScore int
	// Banned is true only when this deduction imposed a new ban.
	Banned   bool
	BanUntil *time.Time
}

// Admission is the outcome of the posting/commenting gate.
type Admission struct {
	Allowed bool
	Score   int
	// BanUntil and Remaining are set when the denial is ban-backed.
	BanUntil  *time.Time
	Remaining time.Duration
}

// RemainingHours is the ban countdown rounded up to whole hours, for
// user-facing denial messages.
func (a *Admission) RemainingHours() int {
	if a.Remaining <= 0 {
		return 0
	}
	return int((a.Remaining + time.Hour - 1) / time.Hour)
}

// enforceBan applies the ban rule to a user snapshot: a score below
// the admission threshold with no active ban gets banUntil = now+24h.
// An existing future ban is never shortened or restarted. Both the
// deduction path and the admission gate go through here so the two
// call sites cannot diverge. Returns true when a new ban was imposed.
func (e *Engine) enforceBan(u *models.User, now time.Time) bool {
	if u.CreditScore >= AdmissionThreshold {
		return false
	}
	if u.BanUntil != nil && u.BanUntil.After(now) {
		return false
	}
	until := now.Add(BanDuration)
	u.BanUntil = &until
	return true
}

// ApplyDeduction subtracts points from the user's score, flooring at
// zero, and imposes a ban if the result crosses the threshold. It
// runs inside the caller's transaction so the score change commits
// atomically with the triggering violation record and notification.
func (e *Engine) ApplyDeduction(ctx context.Context, tx database.Tx, userID int64, points int) (*DeductionResult, error) {
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("apply deduction: %w", err)
	}

	newScore := u.CreditScore - points
	if newScore < 0 {
		newScore = 0
	}
	u.CreditScore = newScore

	now := e.now()
	imposed := e.enforceBan(u, now)

	if err := tx.UpdateUserCredit(ctx, u.ID, u.CreditScore, u.BanUntil); err != nil {
		return nil, fmt.Errorf("apply deduction: %w", err)
	}

	metrics.CreditDeductedTotal.Add(float64(points))
	if imposed {
		metrics.BansImposedTotal.WithLabelValues("deduction").Inc()
	}

	log.Info().
		Int64("user_id", userID).
		Int("points", points).
		Int("new_score", newScore).
		Bool("ban_imposed", imposed).
		Msg("credit: deduction applied")

	return &DeductionResult{NewScore: newScore, Banned: imposed, BanUntil: u.BanUntil}, nil
}

// CheckAdmission is the authoritative gate evaluated before any post
// or comment is created. A sub-threshold score with no active ban is
// banned here lazily: the score may have dropped without an admission
// attempt in between, or the weekly reset may have cleared the ban
// field while the score is still low.
func (e *Engine) CheckAdmission(ctx context.Context, userID int64) (*Admission, error) {
	ctx, span := tracing.StartSpan(ctx, "credit.check_admission")
	defer span.End()

	var adm *Admission
	err := e.store.WithTx(ctx, func(tx database.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		now := e.now()

		if u.BanUntil != nil && u.BanUntil.After(now) {
			adm = &Admission{
				Allowed:   false,
				Score:     u.CreditScore,
				BanUntil:  u.BanUntil,
				Remaining: u.BanUntil.Sub(now),
			}
			return nil
		}

		if u.CreditScore < AdmissionThreshold {
			if e.enforceBan(u, now) {
				if err := tx.UpdateUserCredit(ctx, u.ID, u.CreditScore, u.BanUntil); err != nil {
					return err
				}
				metrics.BansImposedTotal.WithLabelValues("admission").Inc()
				log.Info().
					Int64("user_id", userID).
					Int("score", u.CreditScore).
					Time("ban_until", *u.BanUntil).
					Msg("credit: ban imposed at admission check")
			}
			adm = &Admission{
				Allowed:   false,
				Score:     u.CreditScore,
				BanUntil:  u.BanUntil,
				Remaining: u.BanUntil.Sub(now),
			}
			return nil
		}

		adm = &Admission{Allowed: true, Score: u.CreditScore}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("check admission: %w", err)
		tracing.EndWithError(span, err)
		return nil, err
	}
	return adm, nil
}

// SweepUnban rehabilitates every user whose ban has expired: the
// score is set to exactly the admission threshold, the ban field is
// cleared, and a system inbox message is appended. Clearing the ban
// field is the completion marker, so re-running the sweep selects an
// empty work-set and the operation is idempotent. Returns the number
// of users rehabilitated.
func (e *Engine) SweepUnban(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "credit.sweep_unban")
	defer span.End()

	count := 0
	err := e.store.WithTx(ctx, func(tx database.Tx) error {
		users, err := tx.ListExpiredBans(ctx, e.now())
		if err != nil {
			return err
		}
		for _, u := range users {
			if err := tx.UpdateUserCredit(ctx, u.ID, AdmissionThreshold, nil); err != nil {
				return err
			}
			msg := &models.InboxMessage{
				ID:        uuid.NewString(),
				UserID:    u.ID,
				Type:      models.MessageTypeSystem,
				Body: fmt.Sprintf("Your ban has expired. Your credit score has been restored to %d; it returns to %d with the next weekly reset if you keep a clean record.",
					AdmissionThreshold, InitialScore),
				CreatedAt: e.now(),
			}
			if err := tx.CreateInboxMessage(ctx, msg); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("sweep unban: %w", err)
		tracing.EndWithError(span, err)
		return 0, err
	}

	if count > 0 {
		metrics.SweepUnbannedTotal.Add(float64(count))
		log.Info().Int("rehabilitated", count).Msg("credit: unban sweep completed")
	}
	return count, nil
}

// SweepWeeklyReset restores every non-banned user's score to the
// initial value when the persisted schedule says a reset is due, then
// advances the schedule to the next Monday midnight in the forum
// timezone. Banned users are excluded so an active ban's 24-hour
// clock is not short-circuited. The first invocation only records
// the schedule. Returns the number of users reset.
func (e *Engine) SweepWeeklyReset(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "credit.sweep_weekly_reset")
	defer span.End()

	count := 0
	err := e.store.WithTx(ctx, func(tx database.Tx) error {
		now := e.now().In(e.loc)

		raw, err := tx.GetMeta(ctx, metaKeyWeeklyResetNextRun)
		if err != nil {
			return err
		}
		if raw == "" {
			return tx.SetMeta(ctx, metaKeyWeeklyResetNextRun, nextMonday(now).Format(time.RFC3339))
		}

		nextRun, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("parse weekly reset schedule %q: %w", raw, err)
		}
		if now.Before(nextRun) {
			return nil
		}

		users, err := tx.ListResetCandidates(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if err := tx.UpdateUserCredit(ctx, u.ID, InitialScore, nil); err != nil {
				return err
			}
			count++
		}
		return tx.SetMeta(ctx, metaKeyWeeklyResetNextRun, nextMonday(now).Format(time.RFC3339))
	})
	if err != nil {
		err = fmt.Errorf("sweep weekly reset: %w", err)
		tracing.EndWithError(span, err)
		return 0, err
	}

	if count > 0 {
		metrics.WeeklyResetsTotal.Add(float64(count))
		log.Info().Int("reset", count).Msg("credit: weekly reset completed")
	}
	return count, nil
}

// nextMonday returns the first Monday midnight strictly after t, in
// t's location.
func nextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := t.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
