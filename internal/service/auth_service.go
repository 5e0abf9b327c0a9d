package service

import (
	"context"
	"time"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"
	"chrisshop/internal/redisclient"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns account registration and session lifecycles. The core
// services never see credentials, only the resolved Principal.
type AuthService struct {
	store      *store.Store
	redis      *redisclient.Client
	logger     *zap.Logger
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, redis *redisclient.Client, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		store:      store,
		redis:      redis,
		logger:     util.GetLogger(),
		sessionTTL: sessionTTL,
	}
}

// RegisterRequest carries the signup form fields
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register creates a customer account and opens a session for it
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, string, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	existing, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", apperr.Storage(err)
	}
	if existing != nil {
		return nil, "", apperr.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         models.RoleCustomer,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", apperr.Storage(err)
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	token, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", apperr.Storage(err)
	}
	if user == nil {
		return nil, "", apperr.ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.ErrBadCredentials
	}

	token, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout destroys a session token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.redis.DeleteSession(ctx, token)
}

// Resolve maps a session token to its principal; nil when the session is
// unknown or expired.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, nil
	}
	return s.redis.GetSession(ctx, token)
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (string, error) {
	token := uuid.New().String()
	principal := models.Principal{UserID: user.ID, Role: user.Role}
	if err := s.redis.SetSession(ctx, token, principal, s.sessionTTL); err != nil {
		return "", apperr.Storage(err)
	}
	return token, nil
}
