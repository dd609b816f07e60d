package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/domain/acl"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/password"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// Состояния пользователя в списке.
const (
	UserStateActive      = "active"
	UserStateDeactivated = "deactivated"
)

// UserService — управление пользователями и компаниями (администратор).
type UserService struct {
	store  *repository.Store
	tx     repository.Transactor
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(store *repository.Store, tx repository.Transactor, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		tx:     tx,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// CreateUserInput — параметры нового пользователя.
type CreateUserInput struct {
	Username  string
	Password  string
	Role      string
	CompanyID *int64
}

// UpdateUserInput — изменение пользователя. Password == nil — пароль не меняется,
// CompanyID == nil — компания не меняется.
type UpdateUserInput struct {
	Username  string
	Role      string
	CompanyID *int64
	Password  *string
}

// Create создаёт пользователя.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: имя пользователя не может быть пустым", ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: пароль не может быть пустым", ErrValidation)
	}
	if !acl.IsValidRole(in.Role) {
		return nil, fmt.Errorf("%w: неизвестная роль %q", ErrValidation, in.Role)
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         model.Role(in.Role),
		CompanyID:    in.CompanyID,
		Active:       true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пользователь %q", username))
	}

	s.logger.Info("Пользователь создан",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update меняет имя, роль, компанию и, если задан, пароль пользователя.
// Компанию клиента, остающегося клиентом, менять нельзя.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: имя пользователя не может быть пустым", ErrValidation)
	}
	if !acl.IsValidRole(in.Role) {
		return nil, fmt.Errorf("%w: неизвестная роль %q", ErrValidation, in.Role)
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пользователь %d", id))
	}

	role := model.Role(in.Role)
	if user.Role == model.RoleClient && role == model.RoleClient && in.CompanyID != nil &&
		(user.CompanyID == nil || *user.CompanyID != *in.CompanyID) {
		return nil, fmt.Errorf("%w: нельзя сменить компанию клиента", ErrValidation)
	}

	var hash string
	if in.Password != nil {
		if *in.Password == "" {
			return nil, fmt.Errorf("%w: новый пароль не может быть пустым", ErrValidation)
		}
		if hash, err = password.Hash(*in.Password); err != nil {
			return nil, fmt.Errorf("хеширование пароля: %w", err)
		}
	}

	user.Username = username
	user.Role = role
	if in.CompanyID != nil {
		user.CompanyID = in.CompanyID
	}

	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Users.Update(ctx, user); err != nil {
			return err
		}
		if hash != "" {
			return st.Users.SetPassword(ctx, user.ID, hash)
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пользователь %q", username))
	}

	s.logger.Info("Пользователь изменён",
		slog.Int64("user_id", user.ID),
		slog.Bool("password_changed", hash != ""),
	)
	return user, nil
}

// SetActive активирует или деактивирует пользователя.
// При деактивации удаляются все его сессии.
func (s *UserService) SetActive(ctx context.Context, id int64, active bool) error {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err, fmt.Sprintf("пользователь %d", id))
	}
	if user.Active == active {
		return fmt.Errorf("%w: пользователь %d уже в этом состоянии", ErrValidation, id)
	}

	var dropped int64
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Users.SetActive(ctx, id, active); err != nil {
			return err
		}
		if !active {
			var err error
			dropped, err = st.Sessions.DeleteByUser(ctx, id)
			return err
		}
		return nil
	})
	if err != nil {
		return mapRepoErr(err, fmt.Sprintf("пользователь %d", id))
	}

	s.logger.Info("Состояние пользователя изменено",
		slog.Int64("user_id", id),
		slog.Bool("active", active),
		slog.Int64("sessions_dropped", dropped),
	)
	return nil
}

// List возвращает пользователей в состоянии state (active, deactivated).
func (s *UserService) List(ctx context.Context, state string) ([]*model.User, error) {
	switch state {
	case UserStateActive:
		return s.store.Users.ListByState(ctx, true)
	case UserStateDeactivated:
		return s.store.Users.ListByState(ctx, false)
	default:
		return nil, fmt.Errorf("%w: неизвестное состояние %q, допустимые: active, deactivated", ErrValidation, state)
	}
}

// CreateCompany создаёт компанию.
func (s *UserService) CreateCompany(ctx context.Context, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: название компании не может быть пустым", ErrValidation)
	}

	c := &model.Company{Name: name}
	if err := s.store.Companies.Create(ctx, c); err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("компания %q", name))
	}

	s.logger.Info("Компания создана", slog.Int64("company_id", c.ID))
	return c, nil
}

// ListCompanies возвращает все компании.
func (s *UserService) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return s.store.Companies.List(ctx)
}

// requireCompany проверяет существование компании, если она указана.
func (s *UserService) requireCompany(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.store.Companies.Exists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: компания %d", ErrNotFound, *id)
	}
	return nil
}
