package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	Email    string             `json:"email"`
	Password string             `json:"password"`
	PhotoURL string             `json:"photo_url"`
	Form     accountdomain.Form `json:"form"`
}

type updateProfileRequest struct {
	PhotoURL string              `json:"photo_url"`
	Form     *accountdomain.Form `json:"form"`
}

type sessionView struct {
	ID       string                 `json:"id"`
	State    session.State          `json:"state"`
	Identity *iddomain.Identity     `json:"identity"`
	Profile  *profiledomain.Profile `json:"profile"`
}

type actionResponse struct {
	Session  sessionView        `json:"session"`
	Navigate *navigation.Signal `json:"navigate,omitempty"`
}

func viewSession(sess *session.Session) sessionView {
	return sessionView{
		ID:       sess.ID(),
		State:    sess.State(),
		Identity: sess.Identity(),
		Profile:  sess.Profile(),
	}
}

// withNavigation runs op with a recorder so navigation signals reach the response.
func withNavigation(c *gin.Context, op func(ctx context.Context) error) (*navigation.Signal, error) {
	ctx, rec := navigation.WithRecorder(c.Request.Context())
	err := op(ctx)
	return rec.Signal(), err
}

func (s *Server) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	sess := sessionFromContext(c)
	signal, err := withNavigation(c, func(ctx context.Context) error {
		return s.accounts.SignInWithCredentials(ctx, sess, req.Email, req.Password)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, actionResponse{Session: viewSession(sess), Navigate: signal})
}

func (s *Server) SignInWithProvider(c *gin.Context) {
	sess := sessionFromContext(c)
	signal, err := withNavigation(c, func(ctx context.Context) error {
		return s.accounts.SignInWithProvider(ctx, sess, c.Param("provider"))
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, actionResponse{Session: viewSession(sess), Navigate: signal})
}

// ProviderCallback is reached by a top-level browser redirect, so it answers
// with a redirect too.
func (s *Server) ProviderCallback(c *gin.Context) {
	sess := sessionFromContext(c)
	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		s.accounts.AbandonProviderSignIn(c.Request.Context(), sess, c.Param("provider"), c.Query("state"), providerErr)
		c.Redirect(http.StatusFound, navigation.RouteLogin+"?error="+url.QueryEscape("auth_failed"))
		return
	}

	signal, err := withNavigation(c, func(ctx context.Context) error {
		return s.accounts.CompleteProviderSignIn(ctx, sess, c.Param("provider"), c.Query("code"), c.Query("state"))
	})
	if err != nil {
		_ = c.Error(err)
		_, payload := mapError(err)
		c.Redirect(http.StatusFound, navigation.RouteLogin+"?error="+url.QueryEscape(payload.Type))
		return
	}

	route := navigation.RouteHome
	if signal != nil {
		route = signal.Route
	}
	c.Redirect(http.StatusFound, route)
}

func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sess := sessionFromContext(c)
	signal, err := withNavigation(c, func(ctx context.Context) error {
		return s.accounts.CreateAccount(ctx, sess, req.Email, req.Password, req.Form, req.PhotoURL)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, actionResponse{Session: viewSession(sess), Navigate: signal})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Form == nil {
		AbortWithError(c, newValidationError("form", "required", "form is required"))
		return
	}

	sess := sessionFromContext(c)
	signal, err := withNavigation(c, func(ctx context.Context) error {
		return s.accounts.UploadSignInDetails(ctx, sess, *req.Form, req.PhotoURL)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, actionResponse{Session: viewSession(sess), Navigate: signal})
}

// SignOut never fails: the session is dropped and the cookie cleared.
func (s *Server) SignOut(c *gin.Context) {
	sess := sessionFromContext(c)
	signal, _ := withNavigation(c, func(ctx context.Context) error {
		s.accounts.SignOut(ctx, sess)
		return nil
	})
	view := viewSession(sess)

	s.sessions.Remove(sess.ID())
	s.cookies.Clear(c)

	c.JSON(http.StatusOK, actionResponse{Session: view, Navigate: signal})
}

func (s *Server) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session": viewSession(sessionFromContext(c))})
}

func (s *Server) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profile": sessionFromContext(c).Profile()})
}

type orphanView struct {
	UID      string            `json:"uid"`
	Email    string            `json:"email"`
	Provider iddomain.Provider `json:"provider"`
	Stage    string            `json:"stage,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Since    time.Time         `json:"since"`
}

func (s *Server) ListOrphans(c *gin.Context) {
	orphans, err := s.accounts.Orphans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]orphanView, 0, len(orphans))
	for _, o := range orphans {
		views = append(views, orphanView{
			UID:      o.Identity.UID,
			Email:    o.Identity.Email,
			Provider: o.Identity.Provider,
			Stage:    o.Stage,
			Reason:   o.Reason,
			Since:    o.At,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orphans": views})
}

func (s *Server) ReconcileOrphan(c *gin.Context) {
	var form accountdomain.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.accounts.Reconcile(c.Request.Context(), c.Param("uid"), form)
	if err != nil {
		if errors.Is(err, accountdomain.ErrOrphanNotFound) {
			AbortWithError(c, ErrNotFound)
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
