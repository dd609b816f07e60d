// Пакет acl — уровни прав на узлы дерева и проверки ролей.
// Двухуровневая модель: READ < WRITE, отсутствие права = нет доступа.
// Эффективное право = максимальное из явных прав на цепочке предков.
package acl

import (
	"fmt"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// permissionWeight — вес уровня права для сравнения.
var permissionWeight = map[model.Permission]int{
	model.PermissionRead:  1,
	model.PermissionWrite: 2,
}

// ReadOrWrite — уровни для операций чтения.
var ReadOrWrite = []model.Permission{model.PermissionRead, model.PermissionWrite}

// WriteOnly — уровни для изменяющих операций.
var WriteOnly = []model.Permission{model.PermissionWrite}

// ParsePermission разбирает строку уровня права (регистр важен: READ, WRITE).
func ParsePermission(s string) (model.Permission, error) {
	p := model.Permission(s)
	if _, ok := permissionWeight[p]; !ok {
		return "", fmt.Errorf("неизвестное право %q, допустимые: READ, WRITE", s)
	}
	return p, nil
}

// IsValidPermission проверяет, является ли значение допустимым уровнем права.
func IsValidPermission(p model.Permission) bool {
	_, ok := permissionWeight[p]
	return ok
}

// maxPermission возвращает более сильное из двух прав.
func maxPermission(a, b model.Permission) model.Permission {
	if permissionWeight[a] >= permissionWeight[b] {
		return a
	}
	return b
}

// Highest возвращает максимальное право из набора.
// Если набор пуст — возвращает пустую строку.
func Highest(perms []model.Permission) model.Permission {
	if len(perms) == 0 {
		return ""
	}
	highest := perms[0]
	for _, p := range perms[1:] {
		highest = maxPermission(highest, p)
	}
	return highest
}

// HighestGrant возвращает максимальное право среди явных прав.
func HighestGrant(grants []model.Grant) model.Permission {
	perms := make([]model.Permission, len(grants))
	for i, g := range grants {
		perms[i] = g.Permission
	}
	return Highest(perms)
}

// Matches сообщает, входит ли право в набор требуемых уровней.
// Пустой набор трактуется как WRITE.
func Matches(have model.Permission, required []model.Permission) bool {
	if len(required) == 0 {
		required = WriteOnly
	}
	return toSet(required)[have]
}

// Normalize возвращает набор требуемых уровней без дубликатов и неизвестных значений.
// Пустой результат заменяется на WRITE.
func Normalize(required []model.Permission) []model.Permission {
	seen := make(map[model.Permission]bool, len(required))
	result := make([]model.Permission, 0, len(required))
	for _, p := range required {
		if !IsValidPermission(p) || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	if len(result) == 0 {
		return WriteOnly
	}
	return result
}

// Label возвращает строку набора уровней для логов и метрик ("READ|WRITE").
func Label(required []model.Permission) string {
	parts := make([]string, len(required))
	for i, p := range required {
		parts[i] = string(p)
	}
	return strings.Join(parts, "|")
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	switch model.Role(role) {
	case model.RoleAdmin, model.RoleUser, model.RoleClient:
		return true
	}
	return false
}

// IsAdmin сообщает, обладает ли субъект ролью администратора.
func IsAdmin(p model.Principal) bool {
	return p.Role == model.RoleAdmin
}

// toSet конвертирует срез уровней в map для быстрого поиска.
func toSet(items []model.Permission) map[model.Permission]bool {
	s := make(map[model.Permission]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
