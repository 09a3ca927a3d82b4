package guard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/role"
	"github.com/medicura/medicura-api/internal/session"
)

// Outcome tags a guard decision. Every guarded route consumes the same
// variant set instead of reimplementing the loading/onboarding/role-check
// sequence.
type Outcome int

const (
	// OutcomePending is the zero value while evaluation is in flight; it
	// never escapes Evaluate.
	OutcomePending Outcome = iota
	OutcomeSignInRequired
	OutcomeOnboardingRequired
	OutcomeForbidden
	OutcomeAuthorized
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSignInRequired:
		return "sign_in_required"
	case OutcomeOnboardingRequired:
		return "onboarding_required"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeAuthorized:
		return "authorized"
	}
	return "unknown"
}

// Decision is the guard's verdict for one request.
type Decision struct {
	Outcome     Outcome
	Identity    model.Identity
	Role        model.Role
	Profile     *model.RoleProfile
	DisplayName string
	// Redirect is the suggested target: the role's onboarding page for
	// OnboardingRequired, the resolved role's dashboard for Forbidden.
	Redirect string
	// SessionExpired is set when the sign-in requirement came from a hard
	// session expiry rather than a plain missing/invalid credential.
	SessionExpired bool
}

func signInRequired(expired bool) Decision {
	return Decision{Outcome: OutcomeSignInRequired, SessionExpired: expired}
}

// RoleResolver is satisfied by the role service.
type RoleResolver interface {
	Resolve(ctx context.Context, email string) (*role.Resolution, error)
}

// Evaluator runs the guard pipeline: session validity, role resolution,
// onboarding gate, role authorization gate — in that order. An unboarded
// user is never shown an access-denied decision.
type Evaluator struct {
	sessions session.Store
	resolver RoleResolver
	// timeout bounds the session fetch so an unresponsive store resolves to
	// SignInRequired instead of hanging the request.
	timeout time.Duration
	now     func() time.Time

	onDecision func(Decision, model.Role, time.Duration)
}

type EvaluatorOption func(*Evaluator)

func WithNow(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// WithDecisionHook observes every decision together with the route's
// required role and the evaluation latency, e.g. for metrics.
func WithDecisionHook(fn func(Decision, model.Role, time.Duration)) EvaluatorOption {
	return func(e *Evaluator) { e.onDecision = fn }
}

func NewEvaluator(sessions session.Store, resolver RoleResolver, timeout time.Duration, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		sessions: sessions,
		resolver: resolver,
		timeout:  timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides whether the identity behind sessionID may reach a route
// requiring requiredRole.
func (e *Evaluator) Evaluate(ctx context.Context, identity model.Identity, requiredRole model.Role) Decision {
	start := time.Now()
	d := e.evaluate(ctx, identity, requiredRole)
	if e.onDecision != nil {
		e.onDecision(d, requiredRole, time.Since(start))
	}
	return d
}

func (e *Evaluator) evaluate(ctx context.Context, identity model.Identity, requiredRole model.Role) Decision {
	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	sess, err := e.sessions.Get(fetchCtx, identity.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return signInRequired(e.consumeMarker(ctx, identity))
		}
		// Store unreachable or fetch timed out: resolve to unauthenticated
		// rather than hanging or trusting the bare token.
		log.Warn().Err(err).Msg("session fetch failed, treating as unauthenticated")
		return signInRequired(false)
	}

	// Hard expiry wins over remaining token validity. An expired session
	// found here (e.g. issued before a restart, not yet swept) is terminated
	// inline so no authenticated content is served past the deadline.
	if sess.Expired(e.now()) {
		e.expireInline(ctx, sess)
		return signInRequired(true)
	}

	res, err := e.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		if !errors.Is(err, role.ErrAccountNotFound) {
			log.Error().Err(err).Msg("role resolution failed")
		}
		return signInRequired(false)
	}

	d := Decision{
		Identity:    sess.Identity(),
		Role:        res.Role,
		Profile:     res.Profile,
		DisplayName: res.DisplayName,
	}

	if !res.Onboarded() {
		d.Outcome = OutcomeOnboardingRequired
		d.Redirect = res.Role.OnboardingPath()
		return d
	}

	if res.Role != requiredRole {
		d.Outcome = OutcomeForbidden
		d.Redirect = res.Role.DashboardPath()
		return d
	}

	d.Outcome = OutcomeAuthorized
	return d
}

// expireInline revokes a session found past its hard expiry and records the
// one-shot marker for the next unauthenticated response.
func (e *Evaluator) expireInline(ctx context.Context, sess *session.Session) {
	if err := e.sessions.SetExpiredMarker(ctx, sess.UserID); err != nil {
		log.Error().Err(err).Stringer("session_id", sess.ID).Msg("failed to set expired marker")
	}
	if err := e.sessions.Revoke(ctx, sess.ID); err != nil {
		log.Error().Err(err).Stringer("session_id", sess.ID).Msg("failed to revoke expired session")
	}
}

func (e *Evaluator) consumeMarker(ctx context.Context, identity model.Identity) bool {
	was, err := e.sessions.ConsumeExpiredMarker(ctx, identity.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to consume expired marker")
		return false
	}
	return was
}
