// Package auth はユーザー登録・ログイン、アクセストークンの発行と検証、ロールによる認可判定を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/isofit/internal/model"
	"github.com/hitoshi/isofit/internal/repository"
	"github.com/hitoshi/isofit/internal/security"
)

// validate は登録入力の検証器。エラーのフィールド名にはJSONタグ名を使う。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ServiceConfig は認証サービスの設定。
// Sanitizerが未指定の場合はsecurity.NewContentSanitizerを使う。
type ServiceConfig struct {
	BcryptCost int
	Sanitizer  security.ContentSanitizerService
}

// Credentials はユーザー登録と管理者作成で共通のログイン情報。
// bcryptは72バイトを超えるパスワードを扱えない。
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Credentials
	Firstname            string `json:"firstname" validate:"required"`
	Lastname             string `json:"lastname" validate:"required"`
	DateOfBirth          string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Address              string `json:"address" validate:"required"`
	PhoneNumber          string `json:"phoneNumber" validate:"required"`
	Gender               string `json:"gender" validate:"required"`
	Height               string `json:"height"`
	Weight               string `json:"weight"`
	RestingBloodPressure string `json:"restingBloodPressure"`
}

// AuthResult は登録・ログインの結果。
type AuthResult struct {
	User  *model.User
	Token string
	Role  model.Role
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokens    *TokenIssuer
	config    ServiceConfig
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenIssuer, config ServiceConfig) *Service {
	sanitizer := config.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewContentSanitizer()
	}
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		config:    config,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Register は新規ユーザーをROLE_USERで作成し、アクセストークンを発行する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	age, err := model.CalculateAge(in.DateOfBirth, now)
	if err != nil {
		return nil, model.NewValidationError("dateOfBirth は YYYY-MM-DD 形式で指定してください")
	}

	hash, err := hashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:                   uuid.New().String(),
		Firstname:            s.sanitizer.SanitizeText(in.Firstname),
		Lastname:             s.sanitizer.SanitizeText(in.Lastname),
		Email:                in.Email,
		PasswordHash:         hash,
		DateOfBirth:          in.DateOfBirth,
		Age:                  age,
		Address:              s.sanitizer.SanitizeText(in.Address),
		PhoneNumber:          s.sanitizer.SanitizeText(in.PhoneNumber),
		Gender:               s.sanitizer.SanitizeText(in.Gender),
		Height:               s.sanitizer.SanitizeText(in.Height),
		Weight:               s.sanitizer.SanitizeText(in.Weight),
		RestingBloodPressure: s.sanitizer.SanitizeText(in.RestingBloodPressure),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.userRepo.CreateWithRole(ctx, user, model.RoleUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		return nil, model.NewStorageError("create user", err)
	}

	token, err := s.tokens.Issue(user, model.RoleUser)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token, Role: model.RoleUser}, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// 未登録のメールアドレスとパスワード不一致は区別せずUNAUTHENTICATEDを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("email と password は必須です")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, model.NewStorageError("find user", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError("メールアドレスまたはパスワードが正しくありません。")
	}

	ok, err := checkPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewUnauthenticatedError("メールアドレスまたはパスワードが正しくありません。")
	}

	role, err := s.GetRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user, role)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token, Role: role}, nil
}

// VerifyToken はアクセストークンを検証しクレームを返す。
func (s *Service) VerifyToken(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// GetRole はユーザーの現在のロールを取得する。
// ロールが未登録のユーザーはUNAUTHENTICATEDとして扱う。
func (s *Service) GetRole(ctx context.Context, userID string) (model.Role, error) {
	role, err := s.userRepo.FindRole(ctx, userID)
	if err != nil {
		return "", model.NewStorageError("find role", err)
	}
	if role == "" {
		return "", model.NewUnauthenticatedError("ユーザーのロールが見つかりません。")
	}
	return role, nil
}

// Authenticate はトークンを検証し、ストアから最新のロールを読み直してPrincipalを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	role, err := s.GetRole(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return &Principal{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// BootstrapAdmin は管理者ユーザーを作成する。
// 同じメールアドレスのユーザーが既に存在する場合は何もせずfalseを返す。
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if err := validateInput(Credentials{Email: email, Password: password}); err != nil {
		return false, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return false, model.NewStorageError("find user", err)
	}
	if existing != nil {
		slog.Info("admin user already exists", slog.String("user_id", existing.ID))
		return false, nil
	}

	hash, err := hashPassword(password, s.config.BcryptCost)
	if err != nil {
		return false, err
	}

	now := s.now()
	admin := &model.User{
		ID:           uuid.New().String(),
		Firstname:    "Admin",
		Lastname:     "User",
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.CreateWithRole(ctx, admin, model.RoleAdmin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return false, nil
		}
		return false, model.NewStorageError("create admin", err)
	}

	slog.Info("admin user created", slog.String("user_id", admin.ID))
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateInput はvalidateタグに従って入力を検証し、違反をVALIDATION_ERRORにまとめる。
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return model.NewValidationError("入力項目に誤りがあります: " + strings.Join(fields, ", "))
}
