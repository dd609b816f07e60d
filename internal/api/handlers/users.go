// users.go — обработчики /api/users: пользователи и компании.
// Все маршруты, кроме списка компаний, доступны только администратору.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/ttsstudio/internal/service"
)

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=A U C"`
	Company  *int64 `json:"company"`
}

type updateUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Password *string `json:"password"`
	Role     string  `json:"role" validate:"required,oneof=A U C"`
	Company  *int64  `json:"company"`
}

type activateUserRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type createCompanyRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateUser — POST /api/users/create.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.Users.Create(r.Context(), service.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		Role:      req.Role,
		CompanyID: req.Company,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapUser(user))
}

// UpdateUser — POST /api/users/user-edit/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updateUserRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.Users.Update(r.Context(), id, service.UpdateUserInput{
		Username:  req.Username,
		Role:      req.Role,
		CompanyID: req.Company,
		Password:  req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

// ActivateUser — POST /api/users/activate/{id}. Деактивация завершает сессии пользователя.
func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req activateUserRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Users.SetActive(r.Context(), id, *req.Active); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers — GET /api/users/list/{state}, state = active | deactivated.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), chi.URLParam(r, "state"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = mapUser(u)
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateCompany — POST /api/users/companies.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.Users.CreateCompany(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, companyResponse{ID: c.ID, Name: c.Name})
}

// ListCompanies — GET /api/users/companies. Доступно любому пользователю.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Users.ListCompanies(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]companyResponse, len(companies))
	for i, c := range companies {
		items[i] = companyResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, items)
}
