package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/service"
)

// AuthHandler serves registration, sessions and user profiles.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler wires the auth endpoints.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type tokensResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

type authResp struct {
	User UserResp `json:"user"`
	tokensResp
}

func tokens(p service.TokenPair) tokensResp {
	return tokensResp{
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp},
	}
}

// Register creates a CUSTOMER account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, pair, err := h.auth.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResp{User: userResp(*u), tokensResp: tokens(pair)})
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, pair, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{User: userResp(*u), tokensResp: tokens(pair)})
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pair, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens(pair))
}

// Logout revokes the presented refresh token.  Without one, an
// authenticated caller's sessions are all revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	var userID uint64
	if p, err := caller(c); err == nil {
		userID = p.UserID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.Logout(ctx, userID, req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.auth.Profile(ctx, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp(*u))
}

// MakeAdmin promotes the user in the path to ADMIN.
func (h *AuthHandler) MakeAdmin(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.auth.Promote(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp(*u))
}
