package service

import (
	"context"
	"strings"
	"time"

	"legacynote/internal/contract"
	"legacynote/internal/domain/entity"
	"legacynote/internal/infrastructure/mail"
	"legacynote/internal/utils"
	"legacynote/internal/utils/apierror"
	"legacynote/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 24 * time.Hour

type UserRepository interface {
	FindByID(id int64) (*entity.User, error)
	FindByEmail(email string) (*entity.User, error)
	ExistsByEmail(email string) (bool, error)
	Save(user *entity.User) error
}

type DefaultUserService struct {
	UserRepo UserRepository
	Mailer   mail.Sender
	Validate *validator.Validate
}

func NewUserService(userRepo UserRepository, mailer mail.Sender, validate *validator.Validate) *DefaultUserService {
	return &DefaultUserService{
		UserRepo: userRepo,
		Mailer:   mailer,
		Validate: validate,
	}
}

func (u *DefaultUserService) Register(req *contract.CreateUserRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := u.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	email := strings.ToLower(req.Email)
	exists, err := u.UserRepo.ExistsByEmail(email)
	if err != nil {
		log.Errorf("failed to check email: %v", err)
		return nil, apierror.InternalServerError
	}

	if exists {
		return nil, apierror.ExistingEmailError
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("failed to hash password: %v", err)
		return nil, apierror.InternalServerError
	}

	now := utils.NowUTC()
	user := &entity.User{
		ID:           uid.Generate(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.UserRepo.Save(user); err != nil {
		log.Errorf("failed to save user: %v", err)
		return nil, apierror.InternalServerError
	}

	go u.sendWelcomeMail(user)

	return &contract.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: utils.FormatEpoch(user.CreatedAt),
	}, nil
}

func (u *DefaultUserService) Login(req *contract.UserLoginRequest) (*contract.UserLoginResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := u.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	user, err := u.UserRepo.FindByEmail(strings.ToLower(req.Email))
	if err != nil {
		log.Errorf("failed to fetch user: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.CredentialsMismatchError
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apierror.CredentialsMismatchError
	}

	token, err := utils.IssueToken(user, accessTokenTTL)
	if err != nil {
		log.Errorf("failed to issue token: %v", err)
		return nil, apierror.InternalServerError
	}
	return &contract.UserLoginResponse{AccessToken: token}, nil
}

func (u *DefaultUserService) sendWelcomeMail(user *entity.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := u.Mailer.Send(ctx, mail.Welcome(user.Username, user.Email)); err != nil {
		log.Errorf("failed to send welcome mail to %s: %v", user.Email, err)
	}
}
