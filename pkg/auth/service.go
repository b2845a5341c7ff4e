package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRole        = errors.New("unknown role")
)

// Service resolves users against the store and hands out session tokens.
type Service struct {
	Conn   *gorm.DB
	Issuer *Issuer
}

func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryAuth)

	var user models.User
	err := s.Conn.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("Login for unknown user", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		logger.Warn("Login with wrong password", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.Issuer.Issue(&user)
	if err != nil {
		return "", time.Time{}, err
	}

	logger.Info("User logged in", zap.String("username", username), zap.String("role", string(user.Role)))
	return token, expiresAt, nil
}

// CreateUser stores a user with a bcrypt hash and the given group memberships.
func (s *Service) CreateUser(ctx context.Context, username, password string, role models.Role, groupIDs ...uint) (*models.User, error) {
	switch role {
	case models.RoleAdmin, models.RoleStaff, models.RoleUser:
	default:
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: hash, Role: role}
	for _, gid := range groupIDs {
		user.UserGroups = append(user.UserGroups, models.UserGroup{GroupID: gid})
	}

	if err := s.Conn.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	common.GetCategoryLogger(common.LoggerCategoryAuth).
		Info("Created user", zap.String("username", username), zap.String("role", string(role)))
	return &user, nil
}

// EnsureAdmin creates the bootstrap administrator unless the username is
// taken. An existing user keeps its password and role.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	var n int64
	if err := s.Conn.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, fmt.Errorf("look up admin: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		if db.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
