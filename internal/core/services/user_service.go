package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/pkg/password"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Total int64                  `json:"total"`
}

// CreateUserInput represents an account created by an administrator
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Division string `json:"division"`
	Position string `json:"position"`
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Division *string `json:"division"`
	Position *string `json:"position"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func validRole(role string) bool {
	switch domain.Role(role) {
	case domain.RoleUser, domain.RoleStaff, domain.RoleApprover, domain.RoleAdmin:
		return true
	}
	return false
}

// ListUsers pages through accounts matching filter
func (s *UserService) ListUsers(ctx context.Context, filter repositories.UserFilter, offset, limit int) (*ListUsersOutput, error) {
	for _, role := range filter.Roles {
		if !validRole(role) {
			return nil, domain.NewValidationError("role", "unknown role "+role)
		}
	}
	users, total, err := s.userRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*models.UserResponse, len(users))
	for i, user := range users {
		out[i] = user.ToResponse()
	}
	return &ListUsersOutput{Users: out, Total: total}, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// CreateUser creates an account
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*models.UserResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case username == "":
		return nil, domain.NewValidationError("username", "is required")
	case !strings.Contains(email, "@"):
		return nil, domain.NewValidationError("email", "must be a valid email address")
	case len(input.Password) < 8:
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}
	role := input.Role
	if role == "" {
		role = string(domain.RoleUser)
	}
	if !validRole(role) {
		return nil, domain.NewValidationError("role", "must be one of USER, STAFF, APPROVER, ADMIN")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !exists {
		exists, err = s.userRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     role,
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
		Division: strings.TrimSpace(input.Division),
		Position: strings.TrimSpace(input.Position),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ User created: %s (%s)", user.Username, user.Role)
	return user.ToResponse(), nil
}

// UpdateUserByAdmin updates a user by admin
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id uint, adminID uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Prevent admin from changing own role
	if id == adminID && input.Role != nil {
		return nil, ErrCannotChangeOwnRole
	}

	if input.Role != nil {
		if !validRole(*input.Role) {
			return nil, domain.NewValidationError("role", "must be one of USER, STAFF, APPROVER, ADMIN")
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Division != nil {
		user.Division = strings.TrimSpace(*input.Division)
	}
	if input.Position != nil {
		user.Position = strings.TrimSpace(*input.Position)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// DeleteUser deletes a user (soft delete)
func (s *UserService) DeleteUser(ctx context.Context, id uint, adminID uint) error {
	// Prevent admin from deleting self
	if id == adminID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	// Verify old password
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}
	if len(input.NewPassword) < 8 {
		return domain.NewValidationError("new_password", "must be at least 8 characters")
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.userRepo.Update(ctx, user)
}

func (s *UserService) get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return user, nil
}
