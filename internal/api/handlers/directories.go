// directories.go — обработчики /api/directory: дерево каталогов и права на узлы.
package handlers

import (
	"net/http"

	"github.com/bigkaa/ttsstudio/internal/service"
)

type createDirectoryRequest struct {
	Name     string `json:"name" validate:"required"`
	ParentID *int64 `json:"parent_id"`
}

type renameDirectoryRequest struct {
	Name     string `json:"name" validate:"required"`
	ParentID *int64 `json:"parent_id"`
}

// grantRequest — наличие user_id проверяет контракт; несуществующий
// пользователь (включая 0) даёт 404 на уровне сервиса.
type grantRequest struct {
	UserID     int64  `json:"user_id"`
	Permission string `json:"permission" validate:"required"`
}

// CreateDirectory — POST /api/directory.
func (h *Handler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createDirectoryRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	node, err := h.Tree.Create(r.Context(), p, service.CreateDirectoryInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapNode(node, ""))
}

// GetDirectory — GET /api/directory/{id}. Узел и право вызывающего.
func (h *Handler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	access, err := h.Tree.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNode(access.Node, access.Permission))
}

// RenameDirectory — POST /api/directory/{id}. Переименование и, при parent_id, перенос.
func (h *Handler) RenameDirectory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req renameDirectoryRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	node, err := h.Tree.Rename(r.Context(), p, id, service.RenameInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNode(node, ""))
}

// DeleteDirectory — DELETE /api/directory/{id}?moveDirectoriesToRoot=true|false.
func (h *Handler) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	moveToRoot, err := queryBool(r, "moveDirectoriesToRoot")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Tree.Delete(r.Context(), p, id, moveToRoot); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveDirectory — POST /api/directory/append/{movedId}?id=targetId.
// Без id узел переносится в корень.
func (h *Handler) MoveDirectory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	movedID, err := pathID(r, "movedId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	targetID, err := queryInt64(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	node, err := h.Tree.Move(r.Context(), p, movedID, targetID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNode(node, ""))
}

// ListDirectoryUsers — GET /api/directory/{id}/users. Явные права на узел.
func (h *Handler) ListDirectoryUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	grants, err := h.Tree.ListGrants(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]grantResponse, len(grants))
	for i, g := range grants {
		items[i] = mapGrant(g.Grant, g.Username)
	}
	writeJSON(w, http.StatusOK, items)
}

// GrantPermission — POST /api/directory/{id}/permissions.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req grantRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	grant, err := h.Tree.Grant(r.Context(), p, id, service.GrantInput{
		UserID:     req.UserID,
		Permission: req.Permission,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGrant(*grant, ""))
}

// RevokePermission — DELETE /api/directory/{id}/permissions/{userId}.
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Tree.Revoke(r.Context(), p, id, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
