package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/grimoire/internal/domain/models"
	"github.com/azaliaz/grimoire/internal/logger"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// one message for unknown email and bad password, so accounts cannot be
// enumerated through the login endpoint
const badCredentials = "wrong user id and/or password"

func (s *Server) SignUp(ctx *gin.Context) {
	log := logger.Get()
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("hash password failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.Storage.SaveUser(models.User{Email: req.Email, Pass: string(hash)}); err != nil {
		log.Error().Err(err).Msg("save user failed")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

func (s *Server) Login(ctx *gin.Context) {
	log := logger.Get()
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, err := s.Storage.ValidUser(models.User{Email: req.Email, Pass: req.Password})
	if err != nil {
		if errors.Is(err, storerrros.ErrUserNotFound) || errors.Is(err, storerrros.ErrInvalidPassword) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"message": badCredentials})
			return
		}
		log.Error().Err(err).Msg("validate user failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := createJWTToken(uid)
	if err != nil {
		log.Error().Err(err).Msg("create jwt failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"userId": uid, "token": token})
}
