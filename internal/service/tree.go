// tree.go — дерево каталогов и права доступа к узлам.
// Эффективное право пользователя на узел — любое явное право на цепочке
// от узла до корня. Каждая операция над узлом начинается с CheckAccess.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/audiostore"
	"github.com/bigkaa/ttsstudio/internal/domain/acl"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// TreeService — операции над деревом каталогов и правами.
type TreeService struct {
	store  *repository.Store
	tx     repository.Transactor
	assets audiostore.Store
	logger *slog.Logger
}

// NewTreeService создаёт сервис дерева каталогов.
func NewTreeService(
	store *repository.Store,
	tx repository.Transactor,
	assets audiostore.Store,
	logger *slog.Logger,
) *TreeService {
	return &TreeService{
		store:  store,
		tx:     tx,
		assets: assets,
		logger: logger.With(slog.String("component", "tree_service")),
	}
}

// CreateDirectoryInput — параметры создания папки.
type CreateDirectoryInput struct {
	Name     string
	ParentID *int64
}

// RenameInput — параметры переименования. ParentID == nil — родитель не меняется.
type RenameInput struct {
	Name     string
	ParentID *int64
}

// GrantInput — выдаваемое право.
type GrantInput struct {
	UserID     int64
	Permission string
}

// CheckAccess возвращает явные права пользователя на цепочке предков узла,
// уровень которых входит в levels (по умолчанию WRITE).
// Пустой результат — ErrUnauthorized.
func (s *TreeService) CheckAccess(ctx context.Context, userID, directoryID int64, levels ...model.Permission) ([]model.Grant, error) {
	required := acl.Normalize(levels)

	grants, err := s.store.Permissions.Matching(ctx, userID, directoryID, required)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		label := acl.Label(required)
		accessDeniedTotal.WithLabelValues(label).Inc()
		s.logger.Debug("Нет права на узел",
			slog.Int64("user_id", userID),
			slog.Int64("directory_id", directoryID),
			slog.String("required", label),
		)
		return nil, fmt.Errorf("%w: нет права %s на узел %d", ErrUnauthorized, label, directoryID)
	}
	return grants, nil
}

// Ancestors возвращает узел и его предков, от узла к корню.
func (s *TreeService) Ancestors(ctx context.Context, directoryID int64) ([]model.TreeLink, error) {
	return s.store.Directories.Ancestors(ctx, directoryID)
}

// Descendants возвращает всё поддерево узла без самого узла.
func (s *TreeService) Descendants(ctx context.Context, directoryID int64) ([]model.TreeLink, error) {
	return s.store.Directories.Descendants(ctx, directoryID)
}

// getNode возвращает узел или ErrNotFound.
func (s *TreeService) getNode(ctx context.Context, id int64) (*model.Node, error) {
	node, err := s.store.Directories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("узел %d", id))
	}
	return node, nil
}

// authorize загружает узел и проверяет право вызывающего на него.
// Возвращает узел и его эффективное право.
func (s *TreeService) authorize(ctx context.Context, p model.Principal, id int64, levels ...model.Permission) (*model.Node, model.Permission, error) {
	node, err := s.getNode(ctx, id)
	if err != nil {
		return nil, "", err
	}
	grants, err := s.CheckAccess(ctx, p.UserID, node.ID, levels...)
	if err != nil {
		return nil, "", err
	}
	return node, acl.HighestGrant(grants), nil
}

// Create создаёт папку. Владелец получает WRITE в той же транзакции.
func (s *TreeService) Create(ctx context.Context, p model.Principal, in CreateDirectoryInput) (*model.Node, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: имя не может быть пустым", ErrValidation)
	}

	if in.ParentID != nil {
		parent, _, err := s.authorize(ctx, p, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsDirectory() {
			return nil, fmt.Errorf("%w: узел %d не является папкой", ErrValidation, parent.ID)
		}
	}

	node := &model.Node{
		Name:     name,
		ParentID: in.ParentID,
		Type:     model.NodeTypeDirectory,
		OwnerID:  p.UserID,
	}
	err := s.tx.InTx(ctx, func(st *repository.Store) error {
		return createOwnedNode(ctx, st, node)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Папка создана",
		slog.Int64("directory_id", node.ID),
		slog.Int64("user_id", p.UserID),
	)
	return node, nil
}

// createOwnedNode создаёт узел и право WRITE владельца на него.
func createOwnedNode(ctx context.Context, st *repository.Store, node *model.Node) error {
	if err := st.Directories.Create(ctx, node); err != nil {
		return err
	}
	return st.Permissions.Upsert(ctx, model.Grant{
		DirectoryID: node.ID,
		UserID:      node.OwnerID,
		Permission:  model.PermissionWrite,
	})
}

// Get возвращает узел и эффективное право вызывающего (нужно READ или WRITE).
func (s *TreeService) Get(ctx context.Context, p model.Principal, id int64) (*model.NodeAccess, error) {
	node, perm, err := s.authorize(ctx, p, id, acl.ReadOrWrite...)
	if err != nil {
		return nil, err
	}
	return &model.NodeAccess{Node: node, Permission: perm}, nil
}

// Rename переименовывает узел и, если задан ParentID, переносит его.
func (s *TreeService) Rename(ctx context.Context, p model.Principal, id int64, in RenameInput) (*model.Node, error) {
	node, _, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: имя не может быть пустым", ErrValidation)
	}

	reparent := in.ParentID != nil && (node.ParentID == nil || *node.ParentID != *in.ParentID)
	if reparent {
		if err := s.validateTarget(ctx, p, node, *in.ParentID); err != nil {
			return nil, err
		}
	}

	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Directories.Rename(ctx, node.ID, name); err != nil {
			return err
		}
		if reparent {
			return st.Directories.SetParent(ctx, node.ID, in.ParentID)
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("узел %d", id))
	}

	s.logger.Info("Узел переименован",
		slog.Int64("directory_id", node.ID),
		slog.Int64("user_id", p.UserID),
		slog.Bool("moved", reparent),
	)
	return s.getNode(ctx, node.ID)
}

// Move переносит узел в папку targetID (nil — в корень).
func (s *TreeService) Move(ctx context.Context, p model.Principal, movedID int64, targetID *int64) (*model.Node, error) {
	node, _, err := s.authorize(ctx, p, movedID)
	if err != nil {
		return nil, err
	}

	if targetID != nil {
		if err := s.validateTarget(ctx, p, node, *targetID); err != nil {
			return nil, err
		}
	}

	if err := s.store.Directories.SetParent(ctx, node.ID, targetID); err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("узел %d", movedID))
	}

	s.logger.Info("Узел перемещён",
		slog.Int64("directory_id", node.ID),
		slog.Any("target_id", targetID),
		slog.Int64("user_id", p.UserID),
	)
	return s.getNode(ctx, node.ID)
}

// validateTarget проверяет новую родительскую папку узла: существует,
// вызывающий может в неё писать, это папка и перенос не создаёт цикл.
func (s *TreeService) validateTarget(ctx context.Context, p model.Principal, node *model.Node, targetID int64) error {
	target, _, err := s.authorize(ctx, p, targetID)
	if err != nil {
		return err
	}
	if !target.IsDirectory() {
		return fmt.Errorf("%w: узел %d не является папкой", ErrValidation, target.ID)
	}

	chain, err := s.store.Directories.Ancestors(ctx, target.ID)
	if err != nil {
		return err
	}
	for _, link := range chain {
		if link.ID == node.ID {
			return fmt.Errorf("%w: узел %d нельзя переместить внутрь самого себя", ErrValidation, node.ID)
		}
	}
	return nil
}

// Delete удаляет узел. moveToRoot — перед удалением перенести всё поддерево в корень.
// Для файла удаляются запись речи и аудио (аудио — без отката при ошибке).
func (s *TreeService) Delete(ctx context.Context, p model.Principal, id int64, moveToRoot bool) error {
	node, _, err := s.authorize(ctx, p, id)
	if err != nil {
		return err
	}

	var assetKey *string
	var promoted int64
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if moveToRoot {
			desc, err := st.Directories.Descendants(ctx, node.ID)
			if err != nil {
				return err
			}
			ids := make([]int64, len(desc))
			for i, l := range desc {
				ids[i] = l.ID
			}
			if promoted, err = st.Directories.DetachToRoot(ctx, ids); err != nil {
				return err
			}
		}

		if node.Type == model.NodeTypeFile && node.RecordID != nil {
			key, err := deleteRecord(ctx, st, *node.RecordID)
			if err != nil {
				return err
			}
			assetKey = key
		}

		return st.Directories.Delete(ctx, node.ID)
	})
	if err != nil {
		return mapRepoErr(err, fmt.Sprintf("узел %d", id))
	}

	if assetKey != nil {
		s.removeAsset(ctx, *assetKey)
	}

	s.logger.Info("Узел удалён",
		slog.Int64("directory_id", node.ID),
		slog.Int64("user_id", p.UserID),
		slog.Int64("promoted", promoted),
	)
	return nil
}

// deleteRecord удаляет запись речи и возвращает ключ её аудио.
// Отсутствующая запись не считается ошибкой.
func deleteRecord(ctx context.Context, st *repository.Store, recordID int64) (*string, error) {
	rec, err := st.Records.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := st.Records.Delete(ctx, rec.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return rec.Path, nil
}

// removeAsset удаляет аудио-объект; ошибка только логируется.
func (s *TreeService) removeAsset(ctx context.Context, key string) {
	if s.assets == nil {
		return
	}
	if err := s.assets.Delete(ctx, key); err != nil {
		s.logger.Warn("Не удалось удалить аудио",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// ListGrants возвращает явные права на сам узел (без учёта предков).
func (s *TreeService) ListGrants(ctx context.Context, p model.Principal, id int64) ([]model.GrantWithUser, error) {
	node, _, err := s.authorize(ctx, p, id, acl.ReadOrWrite...)
	if err != nil {
		return nil, err
	}
	return s.store.Permissions.ListByDirectory(ctx, node.ID)
}

// Grant выдаёт пользователю право на узел. На каждого предка узла
// добавляется READ, если у пользователя там ещё нет права.
// Право на сам узел вставляется или заменяется.
func (s *TreeService) Grant(ctx context.Context, p model.Principal, id int64, in GrantInput) (*model.Grant, error) {
	node, _, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}

	level, err := acl.ParsePermission(in.Permission)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	exists, err := s.store.Users.Exists(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: пользователь %d", ErrNotFound, in.UserID)
	}

	if in.UserID == node.OwnerID && level == model.PermissionRead {
		return nil, fmt.Errorf("%w: нельзя понизить право владельца узла %d", ErrConflict, node.ID)
	}

	grant := model.Grant{DirectoryID: node.ID, UserID: in.UserID, Permission: level}
	var propagated int
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		chain, err := st.Directories.Ancestors(ctx, node.ID)
		if err != nil {
			return err
		}
		for _, link := range chain {
			if link.ID == node.ID {
				continue
			}
			inserted, err := st.Permissions.InsertIfAbsent(ctx, model.Grant{
				DirectoryID: link.ID,
				UserID:      in.UserID,
				Permission:  model.PermissionRead,
			})
			if err != nil {
				return err
			}
			if inserted {
				propagated++
			}
		}
		return st.Permissions.Upsert(ctx, grant)
	})
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("узел %d", id))
	}

	s.logger.Info("Право выдано",
		slog.Int64("directory_id", node.ID),
		slog.Int64("target_user_id", in.UserID),
		slog.String("permission", string(level)),
		slog.Int("propagated", propagated),
		slog.Int64("user_id", p.UserID),
	)
	return &grant, nil
}

// Revoke отзывает явное право пользователя на узел. Право владельца не отзывается.
func (s *TreeService) Revoke(ctx context.Context, p model.Principal, id, userID int64) error {
	node, _, err := s.authorize(ctx, p, id)
	if err != nil {
		return err
	}

	if userID == node.OwnerID {
		return fmt.Errorf("%w: нельзя отозвать право владельца узла %d", ErrConflict, node.ID)
	}

	what := fmt.Sprintf("право пользователя %d на узел %d", userID, node.ID)
	grant, err := s.store.Permissions.Get(ctx, node.ID, userID)
	if err != nil {
		return mapRepoErr(err, what)
	}
	if err := s.store.Permissions.Delete(ctx, node.ID, userID); err != nil {
		return mapRepoErr(err, what)
	}

	s.logger.Info("Право отозвано",
		slog.Int64("directory_id", node.ID),
		slog.Int64("target_user_id", userID),
		slog.String("permission", string(grant.Permission)),
		slog.Int64("user_id", p.UserID),
	)
	return nil
}
