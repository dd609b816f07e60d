// fakes_test.go — in-memory реализации репозиториев, хранилища аудио
// и речевого сервиса для unit-тестов сервисного слоя.
package service

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/bigkaa/ttsstudio/internal/audiostore"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/password"
	"github.com/bigkaa/ttsstudio/internal/repository"
	"github.com/bigkaa/ttsstudio/internal/speech"
)

type grantKey struct {
	dir  int64
	user int64
}

type usageKey struct {
	month   string
	user    int64
	company int64
	record  int64
}

// memDB — состояние всех таблиц в памяти.
type memDB struct {
	nextID    int64
	nodes     map[int64]*model.Node
	grants    map[grantKey]model.Permission
	users     map[int64]*model.User
	companies map[int64]*model.Company
	sessions  map[string]*model.Session
	records   map[int64]*model.SpeechRecord
	languages map[int64]model.Language
	voices    map[int64]model.Voice
	configs   map[int64]*model.RecordConfiguration
	token     *model.SpeechToken
	usage     map[usageKey]int64

	// commitErr — ошибка, которую InTx возвращает после успешного fn (сбой коммита)
	commitErr error
}

func newMemDB() *memDB {
	return &memDB{
		nodes:     make(map[int64]*model.Node),
		grants:    make(map[grantKey]model.Permission),
		users:     make(map[int64]*model.User),
		companies: make(map[int64]*model.Company),
		sessions:  make(map[string]*model.Session),
		records:   make(map[int64]*model.SpeechRecord),
		languages: make(map[int64]model.Language),
		voices:    make(map[int64]model.Voice),
		configs:   make(map[int64]*model.RecordConfiguration),
		usage:     make(map[usageKey]int64),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) store() *repository.Store {
	return &repository.Store{
		Directories: memDirectories{db},
		Permissions: memPermissions{db},
		Users:       memUsers{db},
		Companies:   memCompanies{db},
		Sessions:    memSessions{db},
		Records:     memRecords{db},
		Catalog:     memCatalog{db},
		Configs:     memConfigs{db},
		Tokens:      memTokens{db},
		Usage:       memUsage{db},
		Maintenance: memMaintenance{db},
	}
}

func clonePtrs[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (db *memDB) snapshot() memDB {
	s := *db
	s.nodes = clonePtrs(db.nodes)
	s.grants = maps.Clone(db.grants)
	s.users = clonePtrs(db.users)
	s.companies = clonePtrs(db.companies)
	s.sessions = clonePtrs(db.sessions)
	s.records = clonePtrs(db.records)
	s.languages = maps.Clone(db.languages)
	s.voices = maps.Clone(db.voices)
	s.configs = clonePtrs(db.configs)
	s.usage = maps.Clone(db.usage)
	if db.token != nil {
		t := *db.token
		s.token = &t
	}
	return s
}

// memTx — Transactor: при ошибке fn или коммита состояние откатывается.
type memTx struct {
	db *memDB
}

func (t memTx) InTx(_ context.Context, fn func(store *repository.Store) error) error {
	snap := t.db.snapshot()
	err := fn(t.db.store())
	if err == nil {
		err = t.db.commitErr
	}
	if err != nil {
		*t.db = snap
		return err
	}
	return nil
}

// --- directories ---

type memDirectories struct{ db *memDB }

func (r memDirectories) Create(_ context.Context, n *model.Node) error {
	if _, ok := r.db.users[n.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	n.ID = r.db.id()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	c := *n
	r.db.nodes[n.ID] = &c
	return nil
}

func (r memDirectories) GetByID(_ context.Context, id int64) (*model.Node, error) {
	n, ok := r.db.nodes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (r memDirectories) Rename(_ context.Context, id int64, name string) error {
	n, ok := r.db.nodes[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Name = name
	return nil
}

func (r memDirectories) SetParent(_ context.Context, id int64, parentID *int64) error {
	n, ok := r.db.nodes[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.ParentID = copyID(parentID)
	return nil
}

func (r memDirectories) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.nodes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.nodes, id)
	for k := range r.db.grants {
		if k.dir == id {
			delete(r.db.grants, k)
		}
	}
	return nil
}

func (r memDirectories) Ancestors(_ context.Context, id int64) ([]model.TreeLink, error) {
	var chain []model.TreeLink
	seen := make(map[int64]bool)
	cur, ok := r.db.nodes[id]
	for ok && !seen[cur.ID] {
		seen[cur.ID] = true
		chain = append(chain, model.TreeLink{ID: cur.ID, ParentID: copyID(cur.ParentID)})
		if cur.ParentID == nil {
			break
		}
		cur, ok = r.db.nodes[*cur.ParentID]
	}
	return chain, nil
}

func (r memDirectories) Descendants(_ context.Context, id int64) ([]model.TreeLink, error) {
	ids := slices.Sorted(maps.Keys(r.db.nodes))
	var out []model.TreeLink
	seen := map[int64]bool{id: true}
	level := []int64{id}
	for len(level) > 0 {
		var next []int64
		for _, nid := range ids {
			n := r.db.nodes[nid]
			if n.ParentID == nil || seen[nid] || !slices.Contains(level, *n.ParentID) {
				continue
			}
			seen[nid] = true
			next = append(next, nid)
			out = append(out, model.TreeLink{ID: nid, ParentID: copyID(n.ParentID)})
		}
		level = next
	}
	return out, nil
}

func (r memDirectories) DetachToRoot(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if node, ok := r.db.nodes[id]; ok {
			node.ParentID = nil
			n++
		}
	}
	return n, nil
}

// --- permissions ---

type memPermissions struct{ db *memDB }

func (r memPermissions) Matching(ctx context.Context, userID, directoryID int64, levels []model.Permission) ([]model.Grant, error) {
	chain, _ := memDirectories(r).Ancestors(ctx, directoryID)
	var out []model.Grant
	for _, l := range chain {
		perm, ok := r.db.grants[grantKey{l.ID, userID}]
		if ok && slices.Contains(levels, perm) {
			out = append(out, model.Grant{DirectoryID: l.ID, UserID: userID, Permission: perm})
		}
	}
	return out, nil
}

func (r memPermissions) Get(_ context.Context, directoryID, userID int64) (*model.Grant, error) {
	perm, ok := r.db.grants[grantKey{directoryID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.Grant{DirectoryID: directoryID, UserID: userID, Permission: perm}, nil
}

func (r memPermissions) checkRefs(g model.Grant) error {
	if _, ok := r.db.nodes[g.DirectoryID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.db.users[g.UserID]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r memPermissions) Upsert(_ context.Context, g model.Grant) error {
	if err := r.checkRefs(g); err != nil {
		return err
	}
	r.db.grants[grantKey{g.DirectoryID, g.UserID}] = g.Permission
	return nil
}

func (r memPermissions) InsertIfAbsent(_ context.Context, g model.Grant) (bool, error) {
	if err := r.checkRefs(g); err != nil {
		return false, err
	}
	k := grantKey{g.DirectoryID, g.UserID}
	if _, ok := r.db.grants[k]; ok {
		return false, nil
	}
	r.db.grants[k] = g.Permission
	return true, nil
}

func (r memPermissions) Delete(_ context.Context, directoryID, userID int64) error {
	k := grantKey{directoryID, userID}
	if _, ok := r.db.grants[k]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.grants, k)
	return nil
}

func (r memPermissions) ListByDirectory(_ context.Context, directoryID int64) ([]model.GrantWithUser, error) {
	var out []model.GrantWithUser
	for k, perm := range r.db.grants {
		if k.dir != directoryID {
			continue
		}
		out = append(out, model.GrantWithUser{
			Grant:    model.Grant{DirectoryID: k.dir, UserID: k.user, Permission: perm},
			Username: r.db.users[k.user].Username,
		})
	}
	slices.SortFunc(out, func(a, b model.GrantWithUser) int { return cmp.Compare(a.Username, b.Username) })
	return out, nil
}

// --- users, companies ---

type memUsers struct{ db *memDB }

func (r memUsers) usernameTaken(username string, except int64) bool {
	for _, u := range r.db.users {
		if u.Username == username && u.ID != except {
			return true
		}
	}
	return false
}

func (r memUsers) Create(_ context.Context, u *model.User) error {
	if r.usernameTaken(u.Username, 0) {
		return repository.ErrConflict
	}
	if u.CompanyID != nil {
		if _, ok := r.db.companies[*u.CompanyID]; !ok {
			return repository.ErrNotFound
		}
	}
	u.ID = r.db.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	c := *u
	r.db.users[u.ID] = &c
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.db.users[id]
	return ok, nil
}

func (r memUsers) Update(_ context.Context, u *model.User) error {
	stored, ok := r.db.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.usernameTaken(u.Username, u.ID) {
		return repository.ErrConflict
	}
	stored.Username = u.Username
	stored.Role = u.Role
	stored.CompanyID = copyID(u.CompanyID)
	return nil
}

func (r memUsers) SetPassword(_ context.Context, id int64, passwordHash string) error {
	u, ok := r.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r memUsers) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := r.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	return nil
}

func (r memUsers) ListByState(_ context.Context, active bool) ([]*model.User, error) {
	var out []*model.User
	for _, id := range slices.Sorted(maps.Keys(r.db.users)) {
		if u := r.db.users[id]; u.Active == active {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

type memCompanies struct{ db *memDB }

func (r memCompanies) Create(_ context.Context, c *model.Company) error {
	for _, existing := range r.db.companies {
		if existing.Name == c.Name {
			return repository.ErrConflict
		}
	}
	c.ID = r.db.id()
	c.CreatedAt = time.Now()
	cp := *c
	r.db.companies[c.ID] = &cp
	return nil
}

func (r memCompanies) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.db.companies[id]
	return ok, nil
}

func (r memCompanies) List(_ context.Context) ([]model.Company, error) {
	var out []model.Company
	for _, c := range r.db.companies {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b model.Company) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// --- sessions ---

type memSessions struct{ db *memDB }

func (r memSessions) Create(_ context.Context, s *model.Session) error {
	if _, ok := r.db.users[s.UserID]; !ok {
		return repository.ErrNotFound
	}
	s.CreatedAt = time.Now()
	c := *s
	r.db.sessions[s.ID] = &c
	return nil
}

func (r memSessions) GetActive(_ context.Context, id string) (*model.Session, error) {
	s, ok := r.db.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	if _, ok := r.db.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.sessions, id)
	return nil
}

func (r memSessions) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for id, s := range r.db.sessions {
		if s.UserID == userID {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r memSessions) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, s := range r.db.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}

// --- speech records ---

type memRecords struct{ db *memDB }

func (r memRecords) Create(_ context.Context, rec *model.SpeechRecord) error {
	if _, ok := r.db.users[rec.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	rec.ID = r.db.id()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	c := *rec
	r.db.records[rec.ID] = &c
	return nil
}

func (r memRecords) GetByID(_ context.Context, id int64) (*model.SpeechRecord, error) {
	rec, ok := r.db.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r memRecords) Update(_ context.Context, rec *model.SpeechRecord) error {
	stored, ok := r.db.records[rec.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Text = rec.Text
	stored.LanguageID = rec.LanguageID
	stored.VoiceID = rec.VoiceID
	stored.Rate = rec.Rate
	stored.Pitch = rec.Pitch
	stored.Path = rec.Path
	stored.RecordConfigurationID = rec.RecordConfigurationID
	return nil
}

func (r memRecords) Save(_ context.Context, id int64, name string, region *string) error {
	rec, ok := r.db.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Name = name
	rec.Region = region
	rec.Pregenerated = false
	return nil
}

func (r memRecords) ApplyConfiguration(_ context.Context, recordIDs []int64, cfg *model.RecordConfiguration) (int64, error) {
	var n int64
	for _, id := range recordIDs {
		rec, ok := r.db.records[id]
		if !ok {
			continue
		}
		rec.LanguageID = cfg.LanguageID
		rec.VoiceID = cfg.SpeakerID
		rec.Rate = cfg.Rate
		rec.Pitch = cfg.Pitch
		cfgID := cfg.ID
		rec.RecordConfigurationID = &cfgID
		n++
	}
	return n, nil
}

func (r memRecords) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.records, id)
	for _, n := range r.db.nodes {
		if n.RecordID != nil && *n.RecordID == id {
			n.RecordID = nil
		}
	}
	return nil
}

func (r memRecords) buildView(n *model.Node) *model.RecordView {
	v := &model.RecordView{Node: *n}
	if n.RecordID == nil {
		return v
	}
	rec, ok := r.db.records[*n.RecordID]
	if !ok {
		return v
	}
	v.RecordID = &rec.ID
	v.Text = &rec.Text
	v.LanguageID = &rec.LanguageID
	v.SpeakerID = &rec.VoiceID
	v.Rate = &rec.Rate
	v.Pitch = &rec.Pitch
	v.Region = rec.Region
	v.Pregenerated = &rec.Pregenerated
	v.RecordConfigurationID = rec.RecordConfigurationID
	if l, ok := r.db.languages[rec.LanguageID]; ok {
		v.Language = &l.Language
		v.LanguageKey = &l.LanguageKey
	}
	if voice, ok := r.db.voices[rec.VoiceID]; ok {
		v.Speaker = &voice.Speaker
	}
	return v
}

func (r memRecords) View(_ context.Context, nodeID int64) (*model.RecordView, error) {
	n, ok := r.db.nodes[nodeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.buildView(n), nil
}

func (r memRecords) ListForUser(_ context.Context, userID int64, parentID *int64) ([]*model.RecordView, error) {
	var out []*model.RecordView
	for _, n := range r.db.nodes {
		perm, ok := r.db.grants[grantKey{n.ID, userID}]
		if !ok || !sameID(n.ParentID, parentID) {
			continue
		}
		v := r.buildView(n)
		if n.Type == model.NodeTypeFile && (v.Pregenerated == nil || *v.Pregenerated) {
			continue
		}
		v.Permission = perm
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Node.Name != out[j].Node.Name {
			return out[i].Node.Name < out[j].Node.Name
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	return out, nil
}

// --- catalog ---

type memCatalog struct{ db *memDB }

func (r memCatalog) ListLanguages(_ context.Context) ([]model.Language, error) {
	var out []model.Language
	for _, id := range slices.Sorted(maps.Keys(r.db.languages)) {
		out = append(out, r.db.languages[id])
	}
	return out, nil
}

func (r memCatalog) GetLanguage(_ context.Context, id int64) (*model.Language, error) {
	l, ok := r.db.languages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r memCatalog) EnsureLanguage(_ context.Context, language, languageKey string) (int64, error) {
	for _, l := range r.db.languages {
		if l.LanguageKey == languageKey {
			return l.ID, nil
		}
	}
	id := r.db.id()
	r.db.languages[id] = model.Language{ID: id, Language: language, LanguageKey: languageKey}
	return id, nil
}

func (r memCatalog) ListVoices(_ context.Context, languageID int64) ([]model.Voice, error) {
	var out []model.Voice
	for _, id := range slices.Sorted(maps.Keys(r.db.voices)) {
		if v := r.db.voices[id]; v.LanguageID == languageID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r memCatalog) GetVoice(_ context.Context, id int64) (*model.Voice, error) {
	v, ok := r.db.voices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r memCatalog) InsertVoiceIfAbsent(_ context.Context, v model.Voice) (bool, error) {
	if _, ok := r.db.languages[v.LanguageID]; !ok {
		return false, repository.ErrNotFound
	}
	for _, existing := range r.db.voices {
		if existing.LanguageID == v.LanguageID && existing.Speaker == v.Speaker {
			return false, nil
		}
	}
	v.ID = r.db.id()
	r.db.voices[v.ID] = v
	return true, nil
}

// --- record configurations ---

type memConfigs struct{ db *memDB }

func (r memConfigs) fill(c *model.RecordConfiguration) *model.RecordConfiguration {
	cp := *c
	cp.LanguageName = r.db.languages[c.LanguageID].Language
	cp.SpeakerName = r.db.voices[c.SpeakerID].Speaker
	return &cp
}

func (r memConfigs) Create(_ context.Context, c *model.RecordConfiguration) error {
	if _, ok := r.db.users[c.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	c.ID = r.db.id()
	cp := *c
	r.db.configs[c.ID] = &cp
	return nil
}

func (r memConfigs) GetByID(_ context.Context, id int64) (*model.RecordConfiguration, error) {
	c, ok := r.db.configs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.fill(c), nil
}

func (r memConfigs) Update(_ context.Context, c *model.RecordConfiguration) error {
	if _, ok := r.db.configs[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	r.db.configs[c.ID] = &cp
	return nil
}

func (r memConfigs) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.configs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.configs, id)
	return nil
}

func (r memConfigs) ListByOwner(_ context.Context, ownerID int64) ([]*model.RecordConfiguration, error) {
	var out []*model.RecordConfiguration
	for _, id := range slices.Sorted(maps.Keys(r.db.configs)) {
		if c := r.db.configs[id]; c.OwnerID == ownerID {
			out = append(out, r.fill(c))
		}
	}
	return out, nil
}

// --- speech token ---

type memTokens struct{ db *memDB }

func (r memTokens) Get(_ context.Context) (*model.SpeechToken, error) {
	if r.db.token == nil {
		return nil, repository.ErrNotFound
	}
	c := *r.db.token
	return &c, nil
}

func (r memTokens) Upsert(_ context.Context, t *model.SpeechToken) error {
	t.UpdatedAt = time.Now()
	c := *t
	r.db.token = &c
	return nil
}

func (r memTokens) Delete(_ context.Context) error {
	if r.db.token == nil {
		return repository.ErrNotFound
	}
	r.db.token = nil
	return nil
}

// --- usage ---

type memUsage struct{ db *memDB }

func (r memUsage) Increment(_ context.Context, month time.Time, userID int64, companyID, recordID *int64) error {
	k := usageKey{month: month.Format("2006-01-02"), user: userID, company: derefID(companyID), record: derefID(recordID)}
	r.db.usage[k]++
	return nil
}

func (r memUsage) Monthly(_ context.Context, month time.Time, filter repository.UsageFilter) ([]model.UsageRow, error) {
	m := month.Format("2006-01-02")
	sums := make(map[int64]int64)
	for k, n := range r.db.usage {
		if k.month != m {
			continue
		}
		if filter.UserID != nil && k.user != *filter.UserID {
			continue
		}
		if filter.CompanyID != nil && k.company != *filter.CompanyID {
			continue
		}
		sums[k.user] += n
	}
	var out []model.UsageRow
	for userID, n := range sums {
		out = append(out, model.UsageRow{Date: month, Count: n, Username: r.db.users[userID].Username, UserID: userID})
	}
	slices.SortFunc(out, func(a, b model.UsageRow) int { return cmp.Compare(a.Username, b.Username) })
	return out, nil
}

// --- maintenance ---

type memMaintenance struct{ db *memDB }

func (r memMaintenance) ListAssetPaths(_ context.Context) ([]string, error) {
	var out []string
	for _, rec := range r.db.records {
		if rec.Path != nil {
			out = append(out, *rec.Path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r memMaintenance) WipeAll(_ context.Context) error {
	companies := r.db.companies
	nextID := r.db.nextID
	commitErr := r.db.commitErr
	*r.db = *newMemDB()
	r.db.companies = companies
	r.db.nextID = nextID
	// внедрённый сбой коммита переживает очистку данных
	r.db.commitErr = commitErr
	return nil
}

// --- хранилище аудио ---

type memAssets struct {
	objects   map[string][]byte
	deleted   []string
	putErr    error
	deleteErr error
}

func newMemAssets() *memAssets {
	return &memAssets{objects: make(map[string][]byte)}
}

func (m *memAssets) Put(_ context.Context, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *memAssets) Open(_ context.Context, key string) (*audiostore.Object, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, audiostore.ErrNotFound
	}
	return &audiostore.Object{Content: bytes.NewReader(data), Size: int64(len(data))}, nil
}

func (m *memAssets) Copy(_ context.Context, src, dst string) error {
	data, ok := m.objects[src]
	if !ok {
		return audiostore.ErrNotFound
	}
	m.objects[dst] = bytes.Clone(data)
	return nil
}

func (m *memAssets) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memAssets) CheckReady() (string, string) {
	return "ok", ""
}

// --- речевой сервис ---

type fakeSpeech struct {
	validateErr error
	voicesErr   error
	synthErr    error
	voices      []speech.VoiceInfo
	audio       []byte
	ssml        []string
}

func (f *fakeSpeech) Validate(_ context.Context, _ speech.Credentials) error {
	return f.validateErr
}

func (f *fakeSpeech) Voices(_ context.Context, _ speech.Credentials) ([]speech.VoiceInfo, error) {
	return f.voices, f.voicesErr
}

func (f *fakeSpeech) Synthesize(_ context.Context, _ speech.Credentials, ssml string) ([]byte, error) {
	f.ssml = append(f.ssml, ssml)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return f.audio, nil
}

// --- окружение тестов ---

type testEnv struct {
	db     *memDB
	store  *repository.Store
	assets *memAssets
	speech *fakeSpeech

	tree     *TreeService
	sessions *SessionService
	users    *UserService
	catalog  *CatalogService
	tokens   *TokenService
	records  *RecordService
	configs  *ConfigService
	stats    *StatisticsService
	reset    *ResetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := newMemDB()
	store := db.store()
	tx := memTx{db: db}
	assets := newMemAssets()
	api := &fakeSpeech{audio: []byte("RIFF-audio")}

	catalog := NewCatalogService(store, time.Minute)
	tree := NewTreeService(store, tx, assets, logger)
	tokens := NewTokenService(store, tx, api, catalog, []string{"Czech", "English"}, logger)

	return &testEnv{
		db:       db,
		store:    store,
		assets:   assets,
		speech:   api,
		tree:     tree,
		sessions: NewSessionService(store, time.Hour, logger),
		users:    NewUserService(store, tx, logger),
		catalog:  catalog,
		tokens:   tokens,
		records:  NewRecordService(store, tx, tree, catalog, tokens, api, assets, logger),
		configs:  NewConfigService(store, catalog, logger),
		stats:    NewStatisticsService(store),
		reset:    NewResetService(store, tx, assets, logger),
	}
}

// addUser создаёт активного пользователя с паролем "secret".
func (e *testEnv) addUser(t *testing.T, username string, role model.Role, companyID *int64) model.Principal {
	t.Helper()
	hash, err := password.Hash("secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: role, CompanyID: companyID, Active: true}
	if err := e.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create user %s: %v", username, err)
	}
	return model.PrincipalFromUser(u)
}

// mkdir создаёт папку от имени p.
func (e *testEnv) mkdir(t *testing.T, p model.Principal, name string, parentID *int64) *model.Node {
	t.Helper()
	n, err := e.tree.Create(context.Background(), p, CreateDirectoryInput{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("Create %s: %v", name, err)
	}
	return n
}

// seedCatalog добавляет язык cs-CZ с голосом Vlasta и ключ речевого сервиса.
func (e *testEnv) seedCatalog(t *testing.T) (model.Language, model.Voice) {
	t.Helper()
	ctx := context.Background()
	langID, err := e.store.Catalog.EnsureLanguage(ctx, "Czech", "cs-CZ")
	if err != nil {
		t.Fatalf("EnsureLanguage: %v", err)
	}
	if _, err := e.store.Catalog.InsertVoiceIfAbsent(ctx, model.Voice{LanguageID: langID, Speaker: "Vlasta", SpeakerSex: "F"}); err != nil {
		t.Fatalf("InsertVoiceIfAbsent: %v", err)
	}
	voices, _ := e.store.Catalog.ListVoices(ctx, langID)
	if err := e.store.Tokens.Upsert(ctx, &model.SpeechToken{Token: "key", Region: "westeurope"}); err != nil {
		t.Fatalf("Upsert token: %v", err)
	}
	return e.db.languages[langID], voices[0]
}

// grantOf возвращает явное право пользователя на узел или "".
func (e *testEnv) grantOf(dirID, userID int64) model.Permission {
	return e.db.grants[grantKey{dirID, userID}]
}

func ptr[T any](v T) *T {
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
