package service

import (
	"context"
	"errors"
	"strings"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
	"go-scan-pos/pkg/jwt"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

const minPasswordLength = 8

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Profile(ctx context.Context, userID string) (*model.UserResponse, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	// ResetPassword sets a new password without the old one. Operator tooling only.
	ResetPassword(ctx context.Context, email, newPassword string) error
	// EnsureAdmin seeds default roles and creates the manager account if missing.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	users repository.UserRepository
	roles repository.RoleRepository
}

func NewAuthService(users repository.UserRepository, roles repository.RoleRepository) AuthService {
	return &authService{users: users, roles: roles}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	roleCode := ""
	if user.Role != nil {
		roleCode = user.Role.Code
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, user.FullName, roleCode, user.PrivilegeCodes())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	log.Info().Str("operator_id", user.ID.String()).Str("role", roleCode).Msg("Operator logged in")
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.PrivilegeCodes(),
	}, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *authService) setPassword(ctx context.Context, user *model.User, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if err := user.SetPassword(password); err != nil {
		return errors.New("failed to hash new password")
	}
	return s.users.UpdatePassword(ctx, user.ID.String(), user.Password)
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if err := s.roles.SeedDefaults(ctx); err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}

	role, err := s.roles.FindByCode(ctx, model.RoleManager)
	if err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return apperr.Validation("admin password must be at least %d characters", minPasswordLength)
	}
	admin := &model.User{
		Email:    email,
		FullName: "Store Manager",
		RoleID:   &role.ID,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("Admin operator created")
	return nil
}
