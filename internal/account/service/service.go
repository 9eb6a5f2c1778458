package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/smallbiznis/tradesmap/internal/account/domain"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	"github.com/smallbiznis/tradesmap/internal/clock"
	companydomain "github.com/smallbiznis/tradesmap/internal/company/domain"
	"github.com/smallbiznis/tradesmap/internal/config"
	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	"github.com/smallbiznis/tradesmap/internal/observability/logger"
	"github.com/smallbiznis/tradesmap/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/smallbiznis/tradesmap/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	methodPassword  = "password"
	orphanListLimit  = 500
)

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	Identity    iddomain.Gateway
	Geocoding   geodomain.Gateway
	Profiles    profiledomain.Store
	Provisioner domain.CompanyProvisioner
	Navigator   navigation.Navigator
	Clock       clock.Clock
	Orphans     domain.OrphanRepository   `optional:"true"`
	Metrics     *metrics.Metrics          `optional:"true"`
	Limiter     *ratelimit.AccountLimiter `optional:"true"`
}

// Service runs the account lifecycle: sign-in, sign-up, profile sync and sign-out.
type Service struct {
	log          *zap.Logger
	identity     iddomain.Gateway
	geocoding    geodomain.Gateway
	profiles     profiledomain.Store
	provisioner  domain.CompanyProvisioner
	nav          navigation.Navigator
	clock        clock.Clock
	metrics      *metrics.Metrics
	limiter      *ratelimit.AccountLimiter
	callbackBase string

	orphanRepo domain.OrphanRepository
	orphanMu   sync.Mutex
	orphans    map[string]domain.Orphan
}

func New(p Params) *Service {
	return &Service{
		log:          p.Log.Named("account.service"),
		identity:     p.Identity,
		geocoding:    p.Geocoding,
		profiles:     p.Profiles,
		provisioner:  p.Provisioner,
		nav:          p.Navigator,
		clock:        p.Clock,
		metrics:      p.Metrics,
		limiter:      p.Limiter,
		callbackBase: strings.TrimRight(p.Config.AppBaseURL, "/") + "/auth/callback/",
		orphanRepo:   p.Orphans,
		orphans:      make(map[string]domain.Orphan),
	}
}

// CallbackURL is the redirect target registered with the provider.
func (s *Service) CallbackURL(provider iddomain.Provider) string {
	return s.callbackBase + string(provider)
}

// SignInWithCredentials authenticates the session. The profile is derived from the
// identity change; nothing is written.
func (s *Service) SignInWithCredentials(ctx context.Context, sess *session.Session, email, password string) error {
	if err := sess.BeginAuthentication(); err != nil {
		return err
	}

	identity, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		sess.FailAuthentication()
		return s.authFailure(ctx, "sign_in", methodPassword, err)
	}

	s.metrics.RecordAuthAttempt(ctx, methodPassword, "success")
	return sess.SetIdentity(ctx, *identity)
}

// SignInWithProvider sends the client to the provider's consent page. The result
// arrives later through CompleteProviderSignIn.
func (s *Service) SignInWithProvider(ctx context.Context, sess *session.Session, providerName string) error {
	provider, ok := iddomain.ParseProvider(strings.ToLower(strings.TrimSpace(providerName)))
	if !ok {
		perr := iddomain.NewProviderError(iddomain.CodeOperationNotAllowed, "The identity provider is not enabled.")
		return s.authFailure(ctx, "sign_in_with_provider", providerName, perr)
	}
	if err := sess.BeginRedirect(); err != nil {
		return err
	}

	redirect, err := s.identity.SignInWithRedirect(ctx, provider, s.CallbackURL(provider))
	if err != nil {
		sess.FailAuthentication()
		return s.authFailure(ctx, "sign_in_with_provider", string(provider), err)
	}

	sess.SetPending(redirect)
	s.metrics.RecordAuthAttempt(ctx, string(provider), "redirect")
	s.nav.ForceReload(ctx, redirect.URL)
	return nil
}

// CompleteProviderSignIn finishes a redirect sign-in started on the same session.
func (s *Service) CompleteProviderSignIn(ctx context.Context, sess *session.Session, providerName, code, state string) error {
	provider, ok := iddomain.ParseProvider(strings.ToLower(strings.TrimSpace(providerName)))
	if !ok {
		perr := iddomain.NewProviderError(iddomain.CodeOperationNotAllowed, "The identity provider is not enabled.")
		return s.authFailure(ctx, "complete_provider_sign_in", providerName, perr)
	}

	// A mismatched callback leaves the pending redirect in place.
	pending, err := sess.TakePending(provider, state)
	if err != nil {
		perr := &iddomain.ProviderError{
			Code:    iddomain.CodeInvalidCredential,
			Message: "The sign-in request does not match this session.",
			Cause:   err,
		}
		return s.authFailure(ctx, "complete_provider_sign_in", string(provider), perr)
	}

	identity, err := s.identity.CompleteRedirect(ctx, provider, iddomain.CallbackRequest{
		Code:         code,
		RedirectURI:  pending.RedirectURI,
		CodeVerifier: pending.CodeVerifier,
	})
	if err != nil {
		sess.FailAuthentication()
		return s.authFailure(ctx, "complete_provider_sign_in", string(provider), err)
	}

	s.metrics.RecordAuthAttempt(ctx, string(provider), "success")
	if err := sess.SetIdentity(ctx, *identity); err != nil {
		return err
	}

	if sess.Profile() != nil {
		s.nav.NavigateTo(ctx, navigation.RouteHome)
	} else {
		s.nav.NavigateTo(ctx, navigation.RouteDetails)
	}
	return nil
}

// AbandonProviderSignIn handles a provider callback that reports an error. The
// pending redirect is dropped only when the callback carries its state.
func (s *Service) AbandonProviderSignIn(ctx context.Context, sess *session.Session, providerName, state, reason string) {
	provider, ok := iddomain.ParseProvider(strings.ToLower(strings.TrimSpace(providerName)))
	if !ok {
		return
	}
	abandoned := sess.AbandonPending(provider, state)
	s.metrics.RecordAuthAttempt(ctx, string(provider), "abandoned")
	logger.WithContext(ctx, s.log).Info("provider sign-in abandoned",
		zap.String("provider", string(provider)),
		zap.String("reason", reason),
		zap.Bool("matched", abandoned),
	)
}

// CreateAccount creates a credentialed identity and syncs its profile. A sync
// failure leaves the identity in place and records it as an orphan.
func (s *Service) CreateAccount(ctx context.Context, sess *session.Session, email, password string, form domain.Form, photoURL string) error {
	if err := sess.BeginAuthentication(); err != nil {
		return err
	}

	identity, err := s.identity.CreateUserWithPassword(ctx, email, password)
	if err != nil {
		sess.FailAuthentication()
		return s.authFailure(ctx, "create_account", methodPassword, err)
	}
	s.metrics.RecordAuthAttempt(ctx, methodPassword, "created")

	if err := sess.SetIdentity(ctx, *identity); err != nil {
		return err
	}

	if err := s.SyncProfile(ctx, sess, *identity, &form, photoURL); err != nil {
		s.recordOrphan(*identity, err)
		return err
	}
	return nil
}

// UploadSignInDetails runs the profile edit flow for the signed-in identity.
func (s *Service) UploadSignInDetails(ctx context.Context, sess *session.Session, form domain.Form, photoURL string) error {
	identity := sess.Identity()
	if identity == nil {
		return domain.ErrNotAuthenticated
	}
	return s.SyncProfile(ctx, sess, *identity, &form, photoURL)
}

// SyncProfile builds, geocodes and persists the profile for identity. sess may be
// nil when no client is attached.
func (s *Service) SyncProfile(ctx context.Context, sess *session.Session, identity iddomain.Identity, form *domain.Form, photoURL string) error {
	if sess != nil {
		if err := sess.BeginSync(); err != nil {
			return err
		}
	}

	profile, err := s.sync(ctx, identity, form, photoURL)
	if err != nil {
		if sess != nil {
			sess.FailSync()
		}
		return err
	}

	if sess != nil {
		sess.CompleteSync(profile)
	}
	s.clearOrphan(identity.UID)
	s.nav.NavigateTo(ctx, navigation.RouteHome)
	return nil
}

func (s *Service) sync(ctx context.Context, identity iddomain.Identity, form *domain.Form, photoURL string) (*profiledomain.Profile, error) {
	uid := identity.UID
	log := logger.WithUID(logger.WithContext(ctx, s.log), uid)

	token, locked, err := s.limiter.TryLockSync(ctx, uid)
	switch {
	case err != nil:
		log.Warn("sync lock unavailable", zap.Error(err))
	case !locked:
		return nil, s.syncFailure(ctx, log, domain.StageDraft, domain.ErrSyncInProgress, "", nil)
	case token != "":
		defer func() {
			if err := s.limiter.ReleaseSync(context.WithoutCancel(ctx), uid, token); err != nil {
				log.Warn("failed to release sync lock", zap.Error(err))
			}
		}()
	}

	draft := domain.NewDraft(identity, form, photoURL)
	if form != nil && !draft.AccountType.Valid() {
		return nil, s.syncFailure(ctx, log, domain.StageDraft, domain.ErrInvalidForm, "account_type", profiledomain.ErrInvalidAccountType)
	}
	if field, err := draft.Validate(s.clock.Now()); err != nil {
		kind := domain.ErrInvalidForm
		if field == "postal_code" {
			kind = domain.ErrInvalidPostalCode
		}
		return nil, s.syncFailure(ctx, log, domain.StageDraft, kind, field, err)
	}
	if form == nil && draft.PostalCode == "" {
		existing, err := s.profiles.Get(ctx, uid)
		if err != nil {
			return nil, s.syncFailure(ctx, log, domain.StageDraft, domain.ErrPersistenceFailed, "", err)
		}
		if existing != nil {
			draft.SetPostalCode(existing.PostalCode)
		}
	}

	coords, err := s.geocoding.Resolve(ctx, draft.PostalCode)
	if err != nil {
		if errors.Is(err, geodomain.ErrInvalidPostalCode) {
			return nil, s.syncFailure(ctx, log, domain.StageGeocode, domain.ErrInvalidPostalCode, "postal_code", err)
		}
		return nil, s.syncFailure(ctx, log, domain.StageGeocode, domain.ErrGeocodingUnavailable, "", err)
	}
	draft.Coordinates = &coords

	// Provisioning completes before the write so a trader profile is never
	// visible without its company.
	if draft.IsTrader() {
		if err := s.provisioner.CreateCompany(ctx, *form, draft); err != nil {
			if errors.Is(err, companydomain.ErrInvalidTradeType) {
				return nil, s.syncFailure(ctx, log, domain.StageProvision, domain.ErrInvalidForm, "trade_type", err)
			}
			return nil, s.syncFailure(ctx, log, domain.StageProvision, domain.ErrCompanyProvisioningFailed, "", err)
		}
	}

	if err := s.profiles.UpsertMerge(ctx, uid, draft.Fields()); err != nil {
		return nil, s.syncFailure(ctx, log, domain.StagePersist, domain.ErrPersistenceFailed, "", err)
	}

	s.metrics.RecordSync(ctx, domain.StageComplete, "success")
	log.Info("profile synced",
		zap.String("account_type", string(draft.AccountType)),
		zap.Bool("with_form", form != nil),
	)

	stored, err := s.profiles.Get(ctx, uid)
	if err != nil || stored == nil {
		log.Warn("profile reload failed", zap.Error(err))
		projected := &profiledomain.Profile{UID: uid}
		draft.Fields().ApplyTo(projected)
		return projected, nil
	}
	return stored, nil
}

// SignOut always ends signed out, whatever the gateway reports.
func (s *Service) SignOut(ctx context.Context, sess *session.Session) {
	log := logger.WithContext(ctx, s.log)
	if identity := sess.Identity(); identity != nil {
		if err := s.identity.SignOut(ctx, identity.UID); err != nil {
			log.Error("sign out failed",
				zap.String("uid", identity.UID),
				zap.String("code", iddomain.ProviderErrorCode(err)),
				zap.Error(err),
			)
		}
	}
	sess.SignOut()
	s.nav.ForceReload(ctx, navigation.RouteLanding)
}

// Orphans lists identities created without a profile, oldest first. With a
// repository the database is authoritative and failures seen by this process
// only add their stage and reason.
func (s *Service) Orphans(ctx context.Context) ([]domain.Orphan, error) {
	s.orphanMu.Lock()
	seen := make(map[string]domain.Orphan, len(s.orphans))
	for uid, o := range s.orphans {
		seen[uid] = o
	}
	s.orphanMu.Unlock()

	var list []domain.Orphan
	if s.orphanRepo != nil {
		stored, err := s.orphanRepo.ListOrphans(ctx, orphanListLimit)
		if err != nil {
			return nil, err
		}
		list = make([]domain.Orphan, 0, len(stored))
		for _, o := range stored {
			if known, ok := seen[o.Identity.UID]; ok {
				o.Stage, o.Reason = known.Stage, known.Reason
			}
			list = append(list, o)
		}
	} else {
		list = make([]domain.Orphan, 0, len(seen))
		for _, o := range seen {
			list = append(list, o)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].At.Equal(list[j].At) {
			return list[i].Identity.UID < list[j].Identity.UID
		}
		return list[i].At.Before(list[j].At)
	})
	return list, nil
}

// Reconcile re-runs the sync pipeline for an orphaned identity.
func (s *Service) Reconcile(ctx context.Context, uid string, form domain.Form) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return domain.ErrOrphanNotFound
	}

	var orphan *domain.Orphan
	if s.orphanRepo != nil {
		stored, err := s.orphanRepo.FindOrphan(ctx, uid)
		if err != nil {
			return err
		}
		orphan = stored
	} else {
		s.orphanMu.Lock()
		if o, ok := s.orphans[uid]; ok {
			orphan = &o
		}
		s.orphanMu.Unlock()
	}
	if orphan == nil {
		return domain.ErrOrphanNotFound
	}
	return s.SyncProfile(ctx, nil, orphan.Identity, &form, "")
}

func (s *Service) recordOrphan(identity iddomain.Identity, err error) {
	orphan := domain.Orphan{
		Identity: identity,
		Reason:   err.Error(),
		At:       s.clock.Now(),
	}
	var serr *domain.SyncError
	if errors.As(err, &serr) {
		orphan.Stage = serr.Stage
	}

	s.orphanMu.Lock()
	s.orphans[identity.UID] = orphan
	s.orphanMu.Unlock()

	s.log.Warn("identity created without profile",
		zap.String("uid", identity.UID),
		zap.String("stage", orphan.Stage),
		zap.Error(err),
	)
}

func (s *Service) clearOrphan(uid string) {
	s.orphanMu.Lock()
	delete(s.orphans, uid)
	s.orphanMu.Unlock()
}

func (s *Service) syncFailure(ctx context.Context, log *zap.Logger, stage string, kind error, field string, err error) *domain.SyncError {
	serr := &domain.SyncError{Kind: kind, Stage: stage, Field: field, Err: err}
	s.metrics.RecordSync(ctx, stage, kind.Error())
	if serr.UserCorrectable() {
		log.Info("profile sync rejected", zap.String("stage", stage), zap.String("field", field), zap.Error(err))
	} else {
		log.Error("profile sync failed", zap.String("stage", stage), zap.Error(serr))
	}
	return serr
}

func (s *Service) authFailure(ctx context.Context, op, method string, err error) *domain.AuthError {
	aerr := newAuthError(op, err)
	s.metrics.RecordAuthAttempt(ctx, method, aerr.Kind.Error())

	log := logger.WithContext(ctx, s.log)
	if errors.Is(aerr.Kind, domain.ErrWrongCredentials) {
		log.Info("wrong credentials", zap.String("op", op), zap.String("method", method))
		return aerr
	}
	log.Error("auth error",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("code", aerr.Code),
		zap.String("message", aerr.Message),
		zap.String("email", aerr.Email),
		zap.String("credential", aerr.Credential),
		zap.Error(err),
	)
	return aerr
}

func newAuthError(op string, err error) *domain.AuthError {
	aerr := &domain.AuthError{Kind: domain.ErrAuthUnknown, Op: op, Err: err}

	var perr *iddomain.ProviderError
	if errors.As(err, &perr) {
		aerr.Code = perr.Code
		aerr.Message = perr.Message
		aerr.Email = perr.Email
		aerr.Credential = perr.Credential
	}

	switch aerr.Code {
	case iddomain.CodeWrongPassword:
		aerr.Kind = domain.ErrWrongCredentials
	case iddomain.CodeNetworkRequestFailed, iddomain.CodeProviderUnavailable:
		aerr.Kind = domain.ErrProviderUnavailable
	}
	return aerr
}
