package service

import (
	"context"
	"errors"
	"strings"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
	"go-scan-pos/pkg/validator"

	"github.com/rs/zerolog/log"
)

// UserService manages store operators, the identities recorded on every
// stock mutation.
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest, creatorID string) (*model.UserResponse, error)
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	SetActive(ctx context.Context, userID string, active bool, updaterID string) error
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	RoleCode string `json:"role_code" validate:"required"`
}

type userService struct {
	users repository.UserRepository
	roles repository.RoleRepository
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository) UserService {
	return &userService{users: users, roles: roles}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, creatorID string) (*model.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByCode(ctx, req.RoleCode)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    req.Email,
		FullName: req.FullName,
		RoleID:   &role.ID,
		IsActive: true,
	}
	user.CreatedBy = creatorID
	user.UpdatedBy = creatorID
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperr.Storage(err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict(nil, "email %s already exists", req.Email)
		}
		return nil, err
	}

	log.Info().Str("operator_id", user.ID.String()).Str("role", role.Code).Str("created_by", creatorID).Msg("Operator created")
	user.Role = role
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]model.UserResponse, len(users))
	for i := range users {
		resp[i] = users[i].ToResponse()
	}
	return resp, nil
}

func (s *userService) SetActive(ctx context.Context, userID string, active bool, updaterID string) error {
	if userID == updaterID && !active {
		return apperr.Validation("operators cannot deactivate themselves")
	}
	if err := s.users.SetActive(ctx, userID, active, updaterID); err != nil {
		return err
	}
	log.Info().Str("operator_id", userID).Bool("active", active).Str("updated_by", updaterID).Msg("Operator status changed")
	return nil
}
