package model

import "time"

// Role — роль пользователя приложения.
type Role string

const (
	// RoleAdmin — администратор: пользователи, компании, токен речевого сервиса.
	RoleAdmin Role = "A"
	// RoleUser — обычный пользователь; статистика только по себе.
	RoleUser Role = "U"
	// RoleClient — клиент компании; статистика по своей компании.
	RoleClient Role = "C"
)

// User — учётная запись (таблица users).
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	// CompanyID — компания пользователя, может отсутствовать
	CompanyID *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Company — компания (арендатор).
type Company struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Session — сессия входа, идентифицируется значением cookie.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Principal — аутентифицированный субъект запроса.
// Передаётся в сервисы явным параметром.
type Principal struct {
	UserID    int64
	Username  string
	Role      Role
	CompanyID *int64
	Active    bool
}

// PrincipalFromUser строит Principal по учётной записи.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		Active:    u.Active,
	}
}
