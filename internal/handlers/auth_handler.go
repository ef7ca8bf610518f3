package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"billing-system/internal/auth"
	"billing-system/internal/database/models"
	"billing-system/internal/httpx"
	"billing-system/internal/middleware"
)

type AuthHandler struct {
	db     *gorm.DB
	signer *auth.Signer
	ledger *auth.Ledger
	issuer string
}

func NewAuthHandler(db *gorm.DB, signer *auth.Signer, ledger *auth.Ledger, totpIssuer string) *AuthHandler {
	return &AuthHandler{
		db:     db,
		signer: signer,
		ledger: ledger,
		issuer: totpIssuer,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
}

type SignInRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	OTP        string `json:"otp"`
}

type ConfirmTOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error hashing password", nil)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(pwHash),
		FullName: req.FullName,
		Role:     "staff",
	}

	if err := h.db.Create(&user).Error; err != nil {
		if field, ok := httpx.DuplicateField(err); ok {
			httpx.Fail(c, http.StatusConflict, httpx.TypeDuplicateEntry, "Username or email already exists", gin.H{"field": field})
			return
		}
		log.Printf("register: create user: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error creating user", nil)
		return
	}

	httpx.OK(c, http.StatusCreated, "User registered successfully", gin.H{"id": user.ID})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	var user models.User
	if err := h.db.Where("username = ? OR email = ?", req.Identifier, req.Identifier).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidCredentials, "Invalid username or password", nil)
			return
		}
		log.Printf("sign-in: lookup user: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidCredentials, "Invalid username or password", nil)
		return
	}

	if user.TOTPEnabled && user.TOTPSecret != nil {
		if req.OTP == "" || !auth.ValidateTOTP(*user.TOTPSecret, req.OTP) {
			httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidOTP, "Missing or invalid one-time password", nil)
			return
		}
	}

	// Opportunistic ledger cleanup; sign-in proceeds even if it fails.
	if _, err := h.ledger.Sweep(c.Request.Context()); err != nil {
		log.Printf("sign-in: ledger sweep: %v", err)
	}

	token, exp, err := h.signer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		log.Printf("sign-in: issue token: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error generating token", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Login successful", gin.H{
		"access_token": token,
		"expires_at":   exp,
		"user_info":    publicUser(user),
	})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	token := c.GetString(middleware.CtxToken)
	userID := c.GetInt64(middleware.CtxUserID)

	if err := h.ledger.Revoke(c.Request.Context(), userID, token); err != nil {
		log.Printf("sign-out: revoke token: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error revoking token", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Signed out successfully", nil)
}

// EnableTOTP stores a fresh shared secret against the user. The
// second factor stays inactive until ConfirmTOTP sees a valid first
// code, so a lost QR scan cannot lock the account out.
func (h *AuthHandler) EnableTOTP(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "User not found", nil)
		return
	}

	secret, uri, err := auth.EnrollTOTP(h.issuer, user.Email)
	if err != nil {
		log.Printf("enable-2fa: generate secret: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error generating TOTP secret", nil)
		return
	}

	user.TOTPSecret = &secret
	user.TOTPEnabled = false
	if err := h.db.Save(&user).Error; err != nil {
		log.Printf("enable-2fa: save user: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error saving TOTP secret", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Scan the QR code and confirm with a code to activate", gin.H{
		"secret":      secret,
		"otpauth_uri": uri,
		"user_info":   publicUser(user),
	})
}

func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	var req ConfirmTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	userID := c.GetInt64(middleware.CtxUserID)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "User not found", nil)
		return
	}

	if user.TOTPSecret == nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "No pending TOTP enrollment", nil)
		return
	}

	if !auth.ValidateTOTP(*user.TOTPSecret, req.OTP) {
		httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidOTP, "Invalid one-time password", nil)
		return
	}

	user.TOTPEnabled = true
	if err := h.db.Save(&user).Error; err != nil {
		log.Printf("confirm-2fa: save user: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error activating 2FA", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Two-factor authentication enabled", gin.H{"user_info": publicUser(user)})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "User not found", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "User retrieved successfully", publicUser(user))
}
