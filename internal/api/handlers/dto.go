// dto.go — JSON-представления ответов API и функции маппинга из доменных моделей.
package handlers

import (
	"time"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// nodeResponse — узел дерева.
type nodeResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ParentID   *int64    `json:"parent_id"`
	Type       string    `json:"type"`
	OwnerID    int64     `json:"owner_id"`
	RecordID   *int64    `json:"record_id"`
	Permission string    `json:"permission,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func mapNode(n *model.Node, perm model.Permission) nodeResponse {
	return nodeResponse{
		ID:         n.ID,
		Name:       n.Name,
		ParentID:   n.ParentID,
		Type:       string(n.Type),
		OwnerID:    n.OwnerID,
		RecordID:   n.RecordID,
		Permission: string(perm),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

// grantResponse — явное право на узел.
type grantResponse struct {
	DirectoryID int64  `json:"directory_id"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	Permission  string `json:"permission"`
}

func mapGrant(g model.Grant, username string) grantResponse {
	return grantResponse{
		DirectoryID: g.DirectoryID,
		UserID:      g.UserID,
		Username:    username,
		Permission:  string(g.Permission),
	}
}

// recordResponse — узел дерева с данными записи речи.
type recordResponse struct {
	nodeResponse
	Text                  *string  `json:"text,omitempty"`
	LanguageID            *int64   `json:"language_id,omitempty"`
	Language              *string  `json:"language,omitempty"`
	LanguageKey           *string  `json:"language_key,omitempty"`
	SpeakerID             *int64   `json:"speaker_id,omitempty"`
	Speaker               *string  `json:"speaker,omitempty"`
	Rate                  *float64 `json:"rate,omitempty"`
	Pitch                 *float64 `json:"pitch,omitempty"`
	Region                *string  `json:"region,omitempty"`
	Pregenerated          *bool    `json:"pregenerated,omitempty"`
	RecordConfigurationID *int64   `json:"record_configuration_id,omitempty"`
	Editable              bool     `json:"editable"`
}

func mapRecord(v *model.RecordView) recordResponse {
	return recordResponse{
		nodeResponse:          mapNode(&v.Node, v.Permission),
		Text:                  v.Text,
		LanguageID:            v.LanguageID,
		Language:              v.Language,
		LanguageKey:           v.LanguageKey,
		SpeakerID:             v.SpeakerID,
		Speaker:               v.Speaker,
		Rate:                  v.Rate,
		Pitch:                 v.Pitch,
		Region:                v.Region,
		Pregenerated:          v.Pregenerated,
		RecordConfigurationID: v.RecordConfigurationID,
		Editable:              v.Editable,
	}
}

// userResponse — учётная запись без хеша пароля.
type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CompanyID *int64    `json:"company"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type companyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type languageResponse struct {
	ID          int64  `json:"id"`
	Language    string `json:"language"`
	LanguageKey string `json:"language_key"`
}

type voiceResponse struct {
	ID         int64  `json:"id"`
	LanguageID int64  `json:"language_id"`
	Speaker    string `json:"speaker"`
	SpeakerSex string `json:"speaker_sex"`
}

// configResponse — пресет голоса.
type configResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	LanguageID   int64     `json:"language_id"`
	Language     string    `json:"language"`
	SpeakerID    int64     `json:"speaker_id"`
	Speaker      string    `json:"speaker"`
	Rate         float64   `json:"rate"`
	Pitch        float64   `json:"pitch"`
	OwnerID      int64     `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func mapConfig(c *model.RecordConfiguration) configResponse {
	return configResponse{
		ID:         c.ID,
		Name:       c.Name,
		LanguageID: c.LanguageID,
		Language:   c.LanguageName,
		SpeakerID:  c.SpeakerID,
		Speaker:    c.SpeakerName,
		Rate:       c.Rate,
		Pitch:      c.Pitch,
		OwnerID:    c.OwnerID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Region    string    `json:"region"`
	UpdatedAt time.Time `json:"updated_at"`
}

// usageResponse — строка месячной статистики; date в формате YYYY-MM-DD.
type usageResponse struct {
	Date     string `json:"date"`
	Count    int64  `json:"count"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
}

func mapUsage(rows []model.UsageRow) []usageResponse {
	out := make([]usageResponse, len(rows))
	for i, r := range rows {
		out[i] = usageResponse{
			Date:     r.Date.Format(time.DateOnly),
			Count:    r.Count,
			Username: r.Username,
			UserID:   r.UserID,
		}
	}
	return out
}
