// records.go — озвученные записи: синтез, сохранение, копирование, выдача аудио.
// Запись речи живёт в дереве как узел типа file и подчиняется тем же правам.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigkaa/ttsstudio/internal/audiostore"
	"github.com/bigkaa/ttsstudio/internal/domain/acl"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
	"github.com/bigkaa/ttsstudio/internal/speech"
)

const (
	// AudioExtension — расширение аудио-объектов (формат riff-*-pcm).
	AudioExtension = "wav"

	minRatio = 0.5
	maxRatio = 2.0
	// defaultNameRunes — длина имени черновика, построенного из текста.
	defaultNameRunes = 40
)

// RecordService — операции над записями речи.
type RecordService struct {
	store   *repository.Store
	tx      repository.Transactor
	tree    *TreeService
	catalog *CatalogService
	tokens  *TokenService
	speech  SpeechAPI
	assets  audiostore.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecordService создаёт сервис записей речи.
func NewRecordService(
	store *repository.Store,
	tx repository.Transactor,
	tree *TreeService,
	catalog *CatalogService,
	tokens *TokenService,
	api SpeechAPI,
	assets audiostore.Store,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		store:   store,
		tx:      tx,
		tree:    tree,
		catalog: catalog,
		tokens:  tokens,
		speech:  api,
		assets:  assets,
		logger:  logger.With(slog.String("component", "record_service")),
		now:     time.Now,
	}
}

// SynthesizeInput — параметры синтеза. ID == nil — новая запись в DirectoryID
// (nil — в корне), иначе пересинтез существующей записи.
type SynthesizeInput struct {
	Text                  string
	LanguageID            int64
	SpeakerID             int64
	Rate                  float64
	Pitch                 float64
	RecordConfigurationID *int64
	ID                    *int64
	Name                  *string
	DirectoryID           *int64
}

// Synthesize озвучивает текст и создаёт или обновляет запись.
// Аудио сохраняется до транзакции; при откате транзакции новый объект удаляется.
func (s *RecordService) Synthesize(ctx context.Context, p model.Principal, in SynthesizeInput) (*model.RecordView, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: текст не может быть пустым", ErrValidation)
	}
	if err := validateRatio("pitch", in.Pitch); err != nil {
		return nil, err
	}
	if err := validateRatio("rate", in.Rate); err != nil {
		return nil, err
	}

	if in.DirectoryID != nil {
		dir, _, err := s.tree.authorize(ctx, p, *in.DirectoryID)
		if err != nil {
			return nil, err
		}
		if !dir.IsDirectory() {
			return nil, fmt.Errorf("%w: узел %d не является папкой", ErrValidation, dir.ID)
		}
	}

	if in.RecordConfigurationID != nil {
		if _, err := s.store.Configs.GetByID(ctx, *in.RecordConfigurationID); err != nil {
			return nil, mapRepoErr(err, fmt.Sprintf("пресет %d", *in.RecordConfigurationID))
		}
	}

	lang, voice, err := s.catalog.Resolve(ctx, in.LanguageID, in.SpeakerID)
	if err != nil {
		return nil, err
	}

	var node *model.Node
	var rec *model.SpeechRecord
	if in.ID != nil {
		if node, rec, err = s.fileNode(ctx, p, *in.ID); err != nil {
			return nil, err
		}
	}

	cred, err := s.tokens.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	audio, err := s.synthesize(ctx, cred, speech.Synthesis{
		LanguageKey: lang.LanguageKey,
		Speaker:     voice.Speaker,
		Text:        text,
		Rate:        in.Rate,
		Pitch:       in.Pitch,
	})
	if err != nil {
		return nil, err
	}

	key := audiostore.NewKey(AudioExtension)
	if err := s.assets.Put(ctx, key, audio); err != nil {
		return nil, fmt.Errorf("сохранение аудио: %w", err)
	}

	month := monthStart(s.now())
	var oldKey *string

	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if rec == nil {
			rec = &model.SpeechRecord{
				Name:                  draftName(in.Name, text),
				Text:                  text,
				LanguageID:            lang.ID,
				VoiceID:               voice.ID,
				Rate:                  in.Rate,
				Pitch:                 in.Pitch,
				Pregenerated:          true,
				Path:                  &key,
				OwnerID:               p.UserID,
				RecordConfigurationID: in.RecordConfigurationID,
			}
			if err := st.Records.Create(ctx, rec); err != nil {
				return err
			}
			node = &model.Node{
				Name:     rec.Name,
				ParentID: in.DirectoryID,
				Type:     model.NodeTypeFile,
				OwnerID:  p.UserID,
				RecordID: &rec.ID,
			}
			if err := createOwnedNode(ctx, st, node); err != nil {
				return err
			}
		} else {
			oldKey = rec.Path
			rec.Text = text
			rec.LanguageID = lang.ID
			rec.VoiceID = voice.ID
			rec.Rate = in.Rate
			rec.Pitch = in.Pitch
			rec.RecordConfigurationID = in.RecordConfigurationID
			rec.Path = &key
			if err := st.Records.Update(ctx, rec); err != nil {
				return err
			}
		}
		return st.Usage.Increment(ctx, month, p.UserID, p.CompanyID, &rec.ID)
	})
	if err != nil {
		s.tree.removeAsset(ctx, key)
		return nil, mapRepoErr(err, "запись")
	}

	if oldKey != nil && *oldKey != key {
		s.tree.removeAsset(ctx, *oldKey)
	}

	s.logger.Info("Текст озвучен",
		slog.Int64("directory_id", node.ID),
		slog.Int64("record_id", rec.ID),
		slog.Int("bytes", len(audio)),
		slog.Int64("user_id", p.UserID),
	)
	return s.view(ctx, node.ID, model.PermissionWrite)
}

// synthesize вызывает речевой сервис и учитывает результат в метриках.
func (s *RecordService) synthesize(ctx context.Context, cred speech.Credentials, syn speech.Synthesis) ([]byte, error) {
	audio, err := s.speech.Synthesize(ctx, cred, syn.SSML())
	if err != nil {
		speechSynthesisTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка синтеза речи",
			slog.String("voice", syn.VoiceName()),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, speech.ErrRejected) {
			return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
		}
		return nil, speechErr(err)
	}
	speechSynthesisTotal.WithLabelValues("ok").Inc()
	return audio, nil
}

// ApplyConfiguration переносит язык, голос, темп и тон пресета на записи nodeIDs.
// Каждый узел должен быть записью с правом WRITE у вызывающего.
func (s *RecordService) ApplyConfiguration(ctx context.Context, p model.Principal, configID int64, nodeIDs []int64) (int64, error) {
	cfg, err := s.store.Configs.GetByID(ctx, configID)
	if err != nil {
		return 0, mapRepoErr(err, fmt.Sprintf("пресет %d", configID))
	}

	recordIDs := make([]int64, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, _, err := s.tree.authorize(ctx, p, id)
		if err != nil {
			return 0, err
		}
		if node.Type != model.NodeTypeFile || node.RecordID == nil {
			return 0, fmt.Errorf("%w: узел %d не является записью", ErrValidation, id)
		}
		recordIDs = append(recordIDs, *node.RecordID)
	}

	n, err := s.store.Records.ApplyConfiguration(ctx, recordIDs, cfg)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Пресет применён",
		slog.Int64("configuration_id", cfg.ID),
		slog.Int64("records", n),
		slog.Int64("user_id", p.UserID),
	)
	return n, nil
}

// Save сохраняет черновик: переименовывает узел и запись, снимает признак
// черновика и фиксирует регион активного ключа. name == nil — имя не меняется.
func (s *RecordService) Save(ctx context.Context, p model.Principal, id int64, name *string) (*model.RecordView, error) {
	node, rec, err := s.fileNode(ctx, p, id)
	if err != nil {
		return nil, err
	}

	newName := node.Name
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return nil, fmt.Errorf("%w: имя не может быть пустым", ErrValidation)
		}
	}

	region, err := s.tokens.ActiveRegion(ctx)
	if err != nil {
		return nil, err
	}
	var regionPtr *string
	if region != "" {
		regionPtr = &region
	}

	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Directories.Rename(ctx, node.ID, newName); err != nil {
			return err
		}
		return st.Records.Save(ctx, rec.ID, newName, regionPtr)
	})
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("запись %d", id))
	}

	s.logger.Info("Запись сохранена",
		slog.Int64("directory_id", node.ID),
		slog.Int64("record_id", rec.ID),
		slog.Int64("user_id", p.UserID),
	)
	return s.view(ctx, node.ID, model.PermissionWrite)
}

// Delete удаляет запись вместе с узлом и аудио.
func (s *RecordService) Delete(ctx context.Context, p model.Principal, id int64) error {
	if _, _, err := s.fileNode(ctx, p, id); err != nil {
		return err
	}
	return s.tree.Delete(ctx, p, id, false)
}

// Duplicate создаёт копию записи рядом с исходной. Аудио копируется до транзакции.
func (s *RecordService) Duplicate(ctx context.Context, p model.Principal, id int64) (*model.RecordView, error) {
	node, rec, err := s.fileNode(ctx, p, id)
	if err != nil {
		return nil, err
	}

	var key *string
	if rec.Path != nil {
		k := audiostore.NewKey(AudioExtension)
		if err := s.assets.Copy(ctx, *rec.Path, k); err != nil {
			return nil, fmt.Errorf("копирование аудио: %w", err)
		}
		key = &k
	}

	var copyNode *model.Node
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		copyRec := &model.SpeechRecord{
			Name:                  rec.Name,
			Text:                  rec.Text,
			LanguageID:            rec.LanguageID,
			VoiceID:               rec.VoiceID,
			Rate:                  rec.Rate,
			Pitch:                 rec.Pitch,
			Region:                rec.Region,
			Pregenerated:          false,
			Path:                  key,
			OwnerID:               p.UserID,
			RecordConfigurationID: rec.RecordConfigurationID,
		}
		if err := st.Records.Create(ctx, copyRec); err != nil {
			return err
		}
		copyNode = &model.Node{
			Name:     node.Name,
			ParentID: node.ParentID,
			Type:     model.NodeTypeFile,
			OwnerID:  p.UserID,
			RecordID: &copyRec.ID,
		}
		return createOwnedNode(ctx, st, copyNode)
	})
	if err != nil {
		if key != nil {
			s.tree.removeAsset(ctx, *key)
		}
		return nil, mapRepoErr(err, fmt.Sprintf("запись %d", id))
	}

	s.logger.Info("Запись скопирована",
		slog.Int64("source_id", node.ID),
		slog.Int64("directory_id", copyNode.ID),
		slog.Int64("user_id", p.UserID),
	)
	return s.view(ctx, copyNode.ID, model.PermissionWrite)
}

// List возвращает содержимое папки directoryID (nil — корень), видимое вызывающему:
// узлы с явным правом у пользователя, без черновиков.
func (s *RecordService) List(ctx context.Context, p model.Principal, directoryID *int64) ([]*model.RecordView, error) {
	if directoryID != nil {
		if _, _, err := s.tree.authorize(ctx, p, *directoryID, acl.ReadOrWrite...); err != nil {
			return nil, err
		}
	}

	views, err := s.store.Records.ListForUser(ctx, p.UserID, directoryID)
	if err != nil {
		return nil, err
	}
	if err := s.markEditable(ctx, views...); err != nil {
		return nil, err
	}
	return views, nil
}

// Get возвращает запись (нужно READ или WRITE).
func (s *RecordService) Get(ctx context.Context, p model.Principal, id int64) (*model.RecordView, error) {
	node, perm, err := s.tree.authorize(ctx, p, id, acl.ReadOrWrite...)
	if err != nil {
		return nil, err
	}
	if node.Type != model.NodeTypeFile || node.RecordID == nil {
		return nil, fmt.Errorf("%w: узел %d не является записью", ErrNotFound, id)
	}
	return s.view(ctx, node.ID, perm)
}

// OpenAudio открывает аудио записи (нужно READ или WRITE).
// Вызывающий код обязан закрыть Object.
func (s *RecordService) OpenAudio(ctx context.Context, p model.Principal, id int64) (*audiostore.Object, *model.Node, error) {
	node, rec, err := s.fileNode(ctx, p, id, acl.ReadOrWrite...)
	if err != nil {
		return nil, nil, err
	}
	if rec.Path == nil {
		return nil, nil, fmt.Errorf("%w: у записи %d нет аудио", ErrNotFound, rec.ID)
	}

	obj, err := s.assets.Open(ctx, *rec.Path)
	if errors.Is(err, audiostore.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: аудио записи %d", ErrNotFound, rec.ID)
	}
	if err != nil {
		return nil, nil, err
	}
	return obj, node, nil
}

// fileNode загружает узел-запись с проверкой права (по умолчанию WRITE).
// Узел, не являющийся записью, — ErrNotFound.
func (s *RecordService) fileNode(ctx context.Context, p model.Principal, id int64, levels ...model.Permission) (*model.Node, *model.SpeechRecord, error) {
	node, _, err := s.tree.authorize(ctx, p, id, levels...)
	if err != nil {
		return nil, nil, err
	}
	if node.Type != model.NodeTypeFile || node.RecordID == nil {
		return nil, nil, fmt.Errorf("%w: узел %d не является записью", ErrNotFound, id)
	}
	rec, err := s.store.Records.GetByID(ctx, *node.RecordID)
	if err != nil {
		return nil, nil, mapRepoErr(err, fmt.Sprintf("запись узла %d", id))
	}
	return node, rec, nil
}

// view возвращает представление узла с правом perm и признаком editable.
func (s *RecordService) view(ctx context.Context, nodeID int64, perm model.Permission) (*model.RecordView, error) {
	v, err := s.store.Records.View(ctx, nodeID)
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("узел %d", nodeID))
	}
	v.Permission = perm
	if err := s.markEditable(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// markEditable отмечает записи, созданные в регионе активного ключа.
func (s *RecordService) markEditable(ctx context.Context, views ...*model.RecordView) error {
	region, err := s.tokens.ActiveRegion(ctx)
	if err != nil {
		return err
	}
	for _, v := range views {
		v.Editable = v.Node.Type == model.NodeTypeFile && v.Region != nil && region != "" && *v.Region == region
	}
	return nil
}

// validateRatio проверяет множитель темпа или тона.
func validateRatio(field string, v float64) error {
	if v < minRatio || v > maxRatio {
		return fmt.Errorf("%w: %s должен быть в диапазоне от %.1f до %.1f", ErrValidation, field, minRatio, maxRatio)
	}
	return nil
}

// draftName возвращает имя черновика: заданное или начало текста.
func draftName(name *string, text string) string {
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			return n
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= defaultNameRunes {
		return text
	}
	return string([]rune(text)[:defaultNameRunes])
}

// monthStart возвращает первый день месяца t (UTC).
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
