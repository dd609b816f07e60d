package model

import "time"

// SpeechRecord — озвученный текст (таблица speech_records).
type SpeechRecord struct {
	ID         int64
	Name       string
	Text       string
	LanguageID int64
	VoiceID    int64
	Rate       float64
	Pitch      float64
	// Region — регион токена, которым было выполнено последнее сохранение
	Region *string
	// Pregenerated — черновик: запись создана, но ещё не сохранена пользователем
	Pregenerated bool
	// Path — ключ аудио-объекта в хранилище
	Path                  *string
	OwnerID               int64
	RecordConfigurationID *int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// RecordView — узел дерева, дополненный данными записи речи.
// Для папок поля записи пустые.
type RecordView struct {
	Node       Node
	Permission Permission

	RecordID              *int64
	Text                  *string
	LanguageID            *int64
	Language              *string
	LanguageKey           *string
	SpeakerID             *int64
	Speaker               *string
	Rate                  *float64
	Pitch                 *float64
	Region                *string
	Pregenerated          *bool
	RecordConfigurationID *int64

	// Editable — регион записи совпадает с регионом активного токена
	Editable bool
}

// Language — язык синтеза (таблица speech_languages).
type Language struct {
	ID int64
	// Language — название языка на английском, например "Czech"
	Language string
	// LanguageKey — локаль Azure, например "cs-CZ"
	LanguageKey string
}

// Voice — голос синтеза (таблица speech_voices).
type Voice struct {
	ID         int64
	LanguageID int64
	Speaker    string
	SpeakerSex string
}

// RecordConfiguration — сохранённый пресет голоса пользователя.
type RecordConfiguration struct {
	ID           int64
	Name         string
	LanguageID   int64
	SpeakerID    int64
	Rate         float64
	Pitch        float64
	OwnerID      int64
	LanguageName string
	SpeakerName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SpeechToken — ключ подписки речевого сервиса (единственная строка).
type SpeechToken struct {
	Token     string
	Region    string
	UpdatedAt time.Time
}

// UsageRow — строка месячной статистики генераций.
type UsageRow struct {
	Date     time.Time
	Count    int64
	Username string
	UserID   int64
}
