package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"ctachat/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUsername    = errors.New("username must be at least 3 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be 8-64 characters and contain a letter and a digit")
)

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserService struct {
	users  *model.UserRepo
	hasher Hasher
	tokens *TokenService
	log    logrus.FieldLogger
}

func NewUserService(db *gorm.DB, hasher Hasher, tokens *TokenService, log logrus.FieldLogger) *UserService {
	return &UserService{
		users:  model.NewUserRepo(db),
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (s *UserService) Register(ctx context.Context, user *User) (*model.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	// 唯一性检查
	exists, err := s.users.Exists(ctx, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	// 密码加密
	hashedPassword, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &model.User{
		Username: user.Username,
		Email:    user.Email,
		Password: hashedPassword,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

// Login checks the credentials and returns a fresh access token.
func (s *UserService) Login(ctx context.Context, user *User) (string, error) {
	registeredUser, err := s.users.GetByUsername(ctx, user.Username)
	if err != nil {
		return "", err
	}
	if registeredUser == nil || !registeredUser.IsActive {
		return "", ErrInvalidCredentials
	}
	if err := s.hasher.Compare(registeredUser.Password, user.Password); err != nil {
		return "", ErrInvalidCredentials
	}

	// 生成会话令牌
	token, err := s.tokens.CreateToken(registeredUser.ID, registeredUser.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.users.TouchLogin(ctx, registeredUser.ID, time.Now()); err != nil {
		s.log.Warnf("login of %s not recorded: %s", registeredUser.Username, err)
	}
	return token.AccessToken, nil
}

func validateUser(user *User) error {
	if len(strings.TrimSpace(user.Username)) < 3 {
		return ErrInvalidUsername
	}
	if !isValidEmail(user.Email) {
		return ErrInvalidEmail
	}
	if !isValidPassword(user.Password) {
		return ErrWeakPassword
	}
	return nil
}

func isValidPassword(password string) bool {
	const minLen, maxLen = 8, 64
	if len(password) < minLen || len(password) > maxLen {
		return false
	}
	hasLetter, hasNumber := false, false
	for _, char := range password {
		switch {
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsLetter(char):
			hasLetter = true
		}
	}
	return hasLetter && hasNumber
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailRegex.MatchString(email)
}
