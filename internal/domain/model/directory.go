// Пакет model — доменные модели TTS Studio.
package model

import "time"

// NodeType — тип узла дерева.
type NodeType string

const (
	// NodeTypeDirectory — папка.
	NodeTypeDirectory NodeType = "directory"
	// NodeTypeFile — запись с аудио (ссылается на speech_records).
	NodeTypeFile NodeType = "file"
)

// IsValid проверяет, что тип узла допустим.
func (t NodeType) IsValid() bool {
	return t == NodeTypeDirectory || t == NodeTypeFile
}

// Permission — уровень явного права на узел.
type Permission string

const (
	// PermissionRead — просмотр узла и навигация по нему.
	PermissionRead Permission = "READ"
	// PermissionWrite — изменение, перемещение, удаление, управление правами.
	PermissionWrite Permission = "WRITE"
)

// Node — узел дерева каталогов (таблица directories).
type Node struct {
	// ID — идентификатор узла, неизменяем
	ID int64
	// Name — отображаемое имя, не пустое
	Name string
	// ParentID — родитель; nil для корневого узла
	ParentID *int64
	// Type — directory или file
	Type NodeType
	// OwnerID — создатель узла, неизменяем
	OwnerID int64
	// RecordID — запись речи для узлов типа file
	RecordID *int64
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// IsDirectory сообщает, может ли узел содержать дочерние узлы.
func (n *Node) IsDirectory() bool {
	return n.Type == NodeTypeDirectory
}

// TreeLink — пара (id, parent_id), результат обхода дерева.
type TreeLink struct {
	ID       int64
	ParentID *int64
}

// Grant — явное право пользователя на узел (таблица directory_rights).
type Grant struct {
	DirectoryID int64
	UserID      int64
	Permission  Permission
}

// GrantWithUser — явное право вместе с именем пользователя (для UI управления правами).
type GrantWithUser struct {
	Grant
	Username string
}

// NodeAccess — узел вместе с эффективным правом вызывающего.
type NodeAccess struct {
	Node       *Node
	Permission Permission
}
