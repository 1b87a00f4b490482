package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
)

const sessionCacheTTL = time.Minute

// SessionResolver resolves sessions and drops cached ones when an account changes.
type SessionResolver interface {
	auth.RoleResolver
	Invalidate(ctx context.Context, userID uint)
}

type sessionResolver struct {
	accounts repository.AccountRepository
	cache    *redis.Client
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewSessionResolver looks roles up in user_roles, caching the result in Redis when available.
func NewSessionResolver(accounts repository.AccountRepository, cache *redis.Client, logger zerolog.Logger) SessionResolver {
	return &sessionResolver{
		accounts: accounts,
		cache:    cache,
		ttl:      sessionCacheTTL,
		logger:   logger.With().Str("component", "session_resolver").Logger(),
	}
}

func sessionCacheKey(userID uint) string {
	return fmt.Sprintf("session:%d", userID)
}

func (r *sessionResolver) Resolve(ctx context.Context, userID uint) (auth.Session, error) {
	key := sessionCacheKey(userID)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key).Result()
		if err == nil {
			var session auth.Session
			if unmarshalErr := json.Unmarshal([]byte(cached), &session); unmarshalErr == nil {
				return session, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("failed to read session cache")
		}
	}

	role, err := r.accounts.FindRole(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Session{}, auth.ErrNoRole
		}
		return auth.Session{}, err
	}
	profile, err := r.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Session{}, auth.ErrNoRole
		}
		return auth.Session{}, err
	}

	session := auth.Session{
		UserID:   profile.ID,
		Role:     role.Role,
		SchoolID: role.SchoolID,
		Name:     profile.Name,
		Email:    profile.Email,
		Active:   profile.IsActive(),
	}

	if r.cache != nil {
		if payload, err := json.Marshal(session); err == nil {
			if err := r.cache.Set(ctx, key, payload, r.ttl).Err(); err != nil {
				r.logger.Warn().Err(err).Msg("failed to store session cache")
			}
		}
	}

	return session, nil
}

func (r *sessionResolver) Invalidate(ctx context.Context, userID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, sessionCacheKey(userID)).Err(); err != nil {
		r.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate session cache")
	}
}

// AuthService signs users in and lets admins create accounts.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	CreateAccount(ctx context.Context, actor ActivityActor, req dto.AccountCreateRequest) (dto.AccountResponse, error)
}

type authService struct {
	accounts  repository.AccountRepository
	members   repository.MemberRepository
	schools   repository.SchoolRepository
	resolver  auth.RoleResolver
	tokens    *auth.Tokens
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAuthService constructs the authentication service.
func NewAuthService(accounts repository.AccountRepository, members repository.MemberRepository, schools repository.SchoolRepository, resolver auth.RoleResolver, tokens *auth.Tokens, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AuthService {
	return &authService{
		accounts:  accounts,
		members:   members,
		schools:   schools,
		resolver:  resolver,
		tokens:    tokens,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	profile, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, auth.ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := auth.CheckPassword(profile.PasswordHash, req.Password); err != nil {
		s.logger.Info().Uint("user_id", profile.ID).Msg("rejected sign-in attempt")
		return dto.LoginResponse{}, err
	}
	if !profile.IsActive() {
		return dto.LoginResponse{}, ErrAccountInactive
	}

	session, err := s.resolver.Resolve(ctx, profile.ID)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	token, expiresAt, err := s.tokens.Issue(profile.ID)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Session:     session,
	}, nil
}

func (s *authService) CreateAccount(ctx context.Context, actor ActivityActor, req dto.AccountCreateRequest) (dto.AccountResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AccountResponse{}, err
	}

	if req.SchoolID != nil {
		if _, err := s.schools.GetByID(ctx, *req.SchoolID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.AccountResponse{}, ErrSchoolNotFound
			}
			return dto.AccountResponse{}, err
		}
	}

	if _, err := s.accounts.FindByEmail(ctx, req.Email); err == nil {
		return dto.AccountResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AccountResponse{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return dto.AccountResponse{}, err
	}

	profile := models.Profile{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Status:       models.ProfileStatusActive,
		PasswordHash: hash,
	}

	switch req.Role {
	case models.RoleStudent:
		student := models.Student{SchoolID: req.SchoolID, Profile: profile}
		err = s.members.CreateStudent(ctx, &student)
		profile = student.Profile
	case models.RoleTeacher:
		teacher := models.Teacher{SchoolID: req.SchoolID, Profile: profile}
		err = s.members.CreateTeacher(ctx, &teacher)
		profile = teacher.Profile
	case models.RoleSME:
		sme := models.SME{SchoolID: req.SchoolID, Profile: profile}
		err = s.members.CreateSME(ctx, &sme)
		profile = sme.Profile
	default:
		err = s.accounts.Create(ctx, &profile, &models.UserRole{Role: req.Role, SchoolID: req.SchoolID})
	}
	if err != nil {
		if isUniqueViolation(err) {
			return dto.AccountResponse{}, ErrEmailTaken
		}
		return dto.AccountResponse{}, err
	}

	record(ctx, s.activity, s.logger, actor, "account.created", "account", uintPtr(profile.ID), map[string]interface{}{
		"role":  req.Role,
		"email": profile.Email,
	})

	return dto.AccountResponse{
		ID:       profile.ID,
		Name:     profile.Name,
		Email:    profile.Email,
		Role:     req.Role,
		SchoolID: req.SchoolID,
	}, nil
}
