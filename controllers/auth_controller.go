package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/middleware"
	"github.com/mutena/fotomutena/utils"
)

// AuthController issues and revokes admin tokens.
type AuthController struct {
	secret    string
	hash      string
	ttl       time.Duration
	blacklist *utils.TokenBlacklist
}

// NewAuthController expects hash to be a bcrypt hash. An empty hash disables login.
func NewAuthController(secret, hash string, ttl time.Duration, blacklist *utils.TokenBlacklist) *AuthController {
	return &AuthController{secret: secret, hash: hash, ttl: ttl, blacklist: blacklist}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login verifies the admin password and returns a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "password is required")
		return
	}
	if a.hash == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "admin login is not configured")
		return
	}
	if !utils.CheckPassword(a.hash, req.Password) {
		utils.Sugar.Warnw("failed admin login", "ip", middleware.ClientIP(ctx))
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid password")
		return
	}

	token, expiresAt, err := utils.GenerateToken(a.secret, a.ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "expiresAt": expiresAt})
}

// Logout revokes the token used for this request.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt, _ := ctx.Get(middleware.ContextTokenExpiryKey)
	exp, _ := expiresAt.(time.Time)
	a.blacklist.Revoke(ctx.Request.Context(), token, exp)
	utils.Success(ctx, nil)
}

// Me reports the current session.
func (a *AuthController) Me(ctx *gin.Context) {
	expiresAt, _ := ctx.Get(middleware.ContextTokenExpiryKey)
	utils.Success(ctx, gin.H{"role": utils.AdminSubject, "expiresAt": expiresAt})
}
