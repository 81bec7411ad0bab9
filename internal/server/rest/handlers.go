package rest

import (
	"net/http"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/cookies"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	users      *services.UserService
	sessions   *services.SessionService
	federation *services.FederationService
	binder     *cookies.Binder
	log        logging.Logger
}

func NewHandler(us *services.UserService, ss *services.SessionService, fs *services.FederationService,
	binder *cookies.Binder, l logging.Logger) *Handler {
	return &Handler{
		users:      us,
		sessions:   ss,
		federation: fs,
		binder:     binder,
		log:        l.With("module", "rest"),
	}
}

func setCookies(c *gin.Context, values ...string) {
	for _, v := range values {
		c.Writer.Header().Add("Set-Cookie", v)
	}
}

func cookie(c *gin.Context, name string) string {
	return cookies.ParseRequest(c.Request)[name]
}

func (h *Handler) register(c *gin.Context) {
	body := readBody(c)

	user, session, err := h.users.Register(c.Request.Context(), str(body, "email"), str(body, "password"))
	if err != nil {
		h.fail(c, err)
		return
	}

	setCookies(c, h.binder.Session(session)...)
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Public()})
}

func (h *Handler) login(c *gin.Context) {
	body := readBody(c)

	user, session, err := h.users.Login(c.Request.Context(), str(body, "email"), str(body, "password"))
	if err != nil {
		h.fail(c, err)
		return
	}

	setCookies(c, h.binder.Session(session)...)
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Public()})
}

func (h *Handler) logout(c *gin.Context) {
	h.users.Logout(c.Request.Context(), cookie(c, common.RefreshCookieName))

	setCookies(c, h.binder.Clear()...)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), accessToken(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Profile()})
}

func (h *Handler) refresh(c *gin.Context) {
	session, err := h.sessions.Refresh(c.Request.Context(), cookie(c, common.RefreshCookieName))
	if err != nil {
		h.fail(c, err)
		return
	}

	setCookies(c, h.binder.Session(session)...)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) oauthStart(c *gin.Context) {
	authURL, nonce, err := h.federation.Start(c.Query("redirect"))
	if err != nil {
		h.fail(c, err)
		return
	}

	setCookies(c, h.binder.Nonce(nonce))
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) oauthCallback(c *gin.Context) {
	session, redirect, err := h.federation.Callback(c.Request.Context(),
		c.Query("code"), c.Query("state"), cookie(c, common.OAuthNonceCookieName))
	if err != nil {
		h.fail(c, err)
		return
	}

	setCookies(c, h.binder.Session(session)...)
	setCookies(c, h.binder.ClearNonce())
	c.Redirect(http.StatusFound, redirect)
}

// getUser is the admin lookup behind RequireRole("admin").
func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Profile()})
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// currentUser returns the user stored by requireAuth.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
