package services

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	UserTypeParent = "parent"
	UserTypeChild  = "child"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	Email       string `json:"email,omitempty"`
	FirebaseUID string `json:"firebase_uid"`
	UserType    string `json:"user_type"`
	jwt.RegisteredClaims
}

// Identity аутентифицированный вызывающий.
type Identity struct {
	FirebaseUID string
	UserType    string
}

// IDTokenVerifier часть Firebase Auth клиента для проверки ID-токенов.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthService struct {
	ParentRepo   repositories.ParentRepository
	ChildRepo    repositories.ChildRepository
	FirebaseAuth IDTokenVerifier
	JWTSecret    []byte
	TokenTTL     time.Duration
	Now          func() time.Time
}

func NewAuthService(parentRepo repositories.ParentRepository, childRepo repositories.ChildRepository, firebaseAuth IDTokenVerifier, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		ParentRepo:   parentRepo,
		ChildRepo:    childRepo,
		FirebaseAuth: firebaseAuth,
		JWTSecret:    []byte(secret),
		TokenTTL:     ttl,
		Now:          time.Now,
	}
}

func (s *AuthService) issueToken(email, firebaseUID, userType string) (string, error) {
	now := s.Now()
	claims := &Claims{
		Email:       email,
		FirebaseUID: firebaseUID,
		UserType:    userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   firebaseUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTSecret)
}

// LoginGuardian проверяет пароль опекуна и выдает JWT.
func (s *AuthService) LoginGuardian(email, password string) (models.Parent, string, error) {
	parent, err := s.ParentRepo.FindByEmail(email)
	if err != nil {
		return models.Parent{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(parent.Password), []byte(password)); err != nil {
		log.Printf("[AUTH] Неверный пароль для %s", email)
		return models.Parent{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(parent.Email, parent.FirebaseUID, UserTypeParent)
	if err != nil {
		return models.Parent{}, "", err
	}
	return parent, token, nil
}

// LoginChild authenticates a child using their code and returns a JWT token
func (s *AuthService) LoginChild(code string) (models.Child, string, error) {
	child, err := s.ChildRepo.FindByCode(code)
	if err != nil {
		return models.Child{}, "", errors.New("invalid code")
	}

	token, err := s.issueToken("", child.FirebaseUID, UserTypeChild)
	if err != nil {
		return models.Child{}, "", err
	}
	return child, token, nil
}

// HashPassword используется при заведении учетных записей опекунов.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.Now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.FirebaseUID == "" {
		return nil, errors.New("invalid token")
	}
	if claims.UserType != UserTypeParent && claims.UserType != UserTypeChild {
		return nil, errors.New("invalid token: missing user_type")
	}
	return claims, nil
}

// Authenticate принимает собственный JWT или, если настроен Firebase, ID-токен Firebase.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	claims, jwtErr := s.ParseToken(tokenString)
	if jwtErr == nil {
		return Identity{FirebaseUID: claims.FirebaseUID, UserType: claims.UserType}, nil
	}
	if s.FirebaseAuth == nil {
		return Identity{}, jwtErr
	}

	idToken, err := s.FirebaseAuth.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if _, err := s.ParentRepo.FindByFirebaseUID(idToken.UID); err == nil {
		return Identity{FirebaseUID: idToken.UID, UserType: UserTypeParent}, nil
	}
	if _, err := s.ChildRepo.FindByFirebaseUID(idToken.UID); err == nil {
		return Identity{FirebaseUID: idToken.UID, UserType: UserTypeChild}, nil
	}
	return Identity{}, errors.New("user not found")
}

// UpdateDeviceToken сохраняет FCM-токен устройства пользователя.
func (s *AuthService) UpdateDeviceToken(identity Identity, deviceToken string) error {
	switch identity.UserType {
	case UserTypeParent:
		parent, err := s.ParentRepo.FindByFirebaseUID(identity.FirebaseUID)
		if err != nil {
			return err
		}
		parent.DeviceToken = deviceToken
		return s.ParentRepo.Save(parent)
	case UserTypeChild:
		child, err := s.ChildRepo.FindByFirebaseUID(identity.FirebaseUID)
		if err != nil {
			return err
		}
		child.DeviceToken = deviceToken
		return s.ChildRepo.Save(child)
	}
	return errors.New("unknown user type")
}
