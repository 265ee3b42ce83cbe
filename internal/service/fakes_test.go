package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"imagedrive/internal/domain"
)

// memDB общее состояние фейковых репозиториев
type memDB struct {
	mu       sync.Mutex
	nextID   int64
	folders  map[int64]*domain.Folder
	images   map[uuid.UUID]*domain.Image
	settings map[string]int64
	locks    []string
}

func newMemDB() *memDB {
	return &memDB{
		folders:  make(map[int64]*domain.Folder),
		images:   make(map[uuid.UUID]*domain.Image),
		settings: make(map[string]int64),
	}
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type memFolders struct{ db *memDB }

func (r *memFolders) Create(_ context.Context, folder *domain.Folder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.folders {
		if f.OwnerID == folder.OwnerID && !f.IsDeleted && f.Name == folder.Name && sameParent(f.ParentID, folder.ParentID) {
			return fmt.Errorf("create folder %q: %w", folder.Name, domain.ErrConflict)
		}
	}
	r.db.nextID++
	folder.ID = r.db.nextID
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	stored := *folder
	r.db.folders[folder.ID] = &stored
	return nil
}

func (r *memFolders) GetByID(_ context.Context, ownerID string, id int64) (*domain.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.folders[id]
	if !ok || f.OwnerID != ownerID {
		return nil, notFound("folder", id)
	}
	copied := *f
	return &copied, nil
}

func (r *memFolders) list(ownerID string, deleted bool) []domain.Folder {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Folder
	for _, f := range r.db.folders {
		if f.OwnerID == ownerID && f.IsDeleted == deleted {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (r *memFolders) ListActive(_ context.Context, ownerID string) ([]domain.Folder, error) {
	return r.list(ownerID, false), nil
}

func (r *memFolders) ListTrashed(_ context.Context, ownerID string) ([]domain.Folder, error) {
	return r.list(ownerID, true), nil
}

func (r *memFolders) FindSubtree(_ context.Context, ownerID string, root *domain.Folder) ([]domain.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var candidates []domain.Folder
	for _, f := range r.db.folders {
		if f.OwnerID == ownerID && domain.IsDescendantPath(f.Path, root.Path) {
			candidates = append(candidates, *f)
		}
	}
	return domain.SubtreeOf(*root, candidates), nil
}

func (r *memFolders) ExistsActiveSibling(_ context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.folders {
		if f.OwnerID == ownerID && !f.IsDeleted && f.Name == name && f.ID != excludeID && sameParent(f.ParentID, parentID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memFolders) UpdateNameAndPath(_ context.Context, folder *domain.Folder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.folders[folder.ID]
	if !ok || f.OwnerID != folder.OwnerID {
		return notFound("folder", folder.ID)
	}
	f.Name = folder.Name
	f.Path = folder.Path
	return nil
}

func (r *memFolders) UpdatePath(_ context.Context, ownerID string, id int64, path string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.folders[id]; ok && f.OwnerID == ownerID {
		f.Path = path
	}
	return nil
}

func (r *memFolders) MarkDeleted(_ context.Context, ownerID string, ids []int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range ids {
		if f, ok := r.db.folders[id]; ok && f.OwnerID == ownerID && !f.IsDeleted {
			deletedAt := at
			f.IsDeleted = true
			f.DeletedAt = &deletedAt
		}
	}
	return nil
}

func (r *memFolders) Restore(_ context.Context, folder *domain.Folder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.folders[folder.ID]
	if !ok || f.OwnerID != folder.OwnerID || !f.IsDeleted {
		return notFound("folder", folder.ID)
	}
	f.IsDeleted = false
	f.DeletedAt = nil
	folder.IsDeleted = false
	folder.DeletedAt = nil
	return nil
}

func (r *memFolders) DeleteByIDs(_ context.Context, ownerID string, ids []int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if f, ok := r.db.folders[id]; ok && f.OwnerID == ownerID {
			delete(r.db.folders, id)
			n++
		}
	}
	return n, nil
}

type memImages struct{ db *memDB }

func (r *memImages) Create(_ context.Context, image *domain.Image) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	image.CreatedAt = time.Now()
	image.UpdatedAt = image.CreatedAt
	stored := *image
	r.db.images[image.ID] = &stored
	return nil
}

func (r *memImages) GetByID(_ context.Context, ownerID string, id uuid.UUID) (*domain.Image, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i, ok := r.db.images[id]
	if !ok || i.OwnerID != ownerID {
		return nil, notFound("image", id)
	}
	copied := *i
	return &copied, nil
}

func (r *memImages) filter(keep func(*domain.Image) bool) []domain.Image {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []domain.Image{}
	for _, i := range r.db.images {
		if keep(i) {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (r *memImages) ListActiveByFolder(_ context.Context, ownerID string, folderID int64) ([]domain.Image, error) {
	return r.filter(func(i *domain.Image) bool {
		return i.OwnerID == ownerID && i.FolderID == folderID && !i.IsDeleted
	}), nil
}

func (r *memImages) ListTrashed(_ context.Context, ownerID string) ([]domain.Image, error) {
	return r.filter(func(i *domain.Image) bool { return i.OwnerID == ownerID && i.IsDeleted }), nil
}

func inIDs(id int64, ids []int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *memImages) ListByFolders(_ context.Context, ownerID string, folderIDs []int64) ([]domain.Image, error) {
	return r.filter(func(i *domain.Image) bool { return i.OwnerID == ownerID && inIDs(i.FolderID, folderIDs) }), nil
}

func (r *memImages) Rename(_ context.Context, image *domain.Image) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i, ok := r.db.images[image.ID]
	if !ok || i.OwnerID != image.OwnerID || i.IsDeleted {
		return notFound("image", image.ID)
	}
	i.Name = image.Name
	return nil
}

func (r *memImages) MarkDeleted(_ context.Context, ownerID string, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if i, ok := r.db.images[id]; ok && i.OwnerID == ownerID && !i.IsDeleted {
		deletedAt := at
		i.IsDeleted = true
		i.DeletedAt = &deletedAt
	}
	return nil
}

func (r *memImages) MarkDeletedByFolders(_ context.Context, ownerID string, folderIDs []int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, i := range r.db.images {
		if i.OwnerID == ownerID && inIDs(i.FolderID, folderIDs) && !i.IsDeleted {
			deletedAt := at
			i.IsDeleted = true
			i.DeletedAt = &deletedAt
		}
	}
	return nil
}

func (r *memImages) Restore(_ context.Context, image *domain.Image) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i, ok := r.db.images[image.ID]
	if !ok || i.OwnerID != image.OwnerID || !i.IsDeleted {
		return notFound("image", image.ID)
	}
	i.IsDeleted = false
	i.DeletedAt = nil
	image.IsDeleted = false
	image.DeletedAt = nil
	return nil
}

func (r *memImages) RestoreByFolder(_ context.Context, ownerID string, folderID int64, deletedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, i := range r.db.images {
		if i.OwnerID == ownerID && i.FolderID == folderID && i.IsDeleted &&
			i.DeletedAt != nil && i.DeletedAt.Equal(deletedAt) {
			i.IsDeleted = false
			i.DeletedAt = nil
		}
	}
	return nil
}

func (r *memImages) Delete(_ context.Context, ownerID string, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i, ok := r.db.images[id]
	if !ok || i.OwnerID != ownerID {
		return notFound("image", id)
	}
	delete(r.db.images, id)
	return nil
}

func (r *memImages) DeleteByFolders(_ context.Context, ownerID string, folderIDs []int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, i := range r.db.images {
		if i.OwnerID == ownerID && inIDs(i.FolderID, folderIDs) {
			delete(r.db.images, id)
			n++
		}
	}
	return n, nil
}

type memTrash struct{ db *memDB }

func (r *memTrash) retention(ownerID string, def time.Duration) time.Duration {
	if secs, ok := r.db.settings[ownerID]; ok {
		return time.Duration(secs) * time.Second
	}
	return def
}

func (r *memTrash) GetSettings(_ context.Context, ownerID string, def time.Duration) (*domain.TrashSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return &domain.TrashSettings{
		OwnerID:          ownerID,
		RetentionSeconds: int64(r.retention(ownerID, def) / time.Second),
	}, nil
}

func (r *memTrash) UpsertSettings(_ context.Context, settings *domain.TrashSettings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.settings[settings.OwnerID] = settings.RetentionSeconds
	settings.UpdatedAt = time.Now()
	return nil
}

func (r *memTrash) ExpiredFolders(_ context.Context, now time.Time, def time.Duration) ([]domain.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Folder
	for _, f := range r.db.folders {
		if f.IsDeleted && f.DeletedAt != nil && f.DeletedAt.Add(r.retention(f.OwnerID, def)).Before(now) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func (r *memTrash) ExpiredImages(_ context.Context, now time.Time, def time.Duration) ([]domain.Image, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Image
	for _, i := range r.db.images {
		folder, ok := r.db.folders[i.FolderID]
		if !ok || folder.IsDeleted {
			continue
		}
		if i.IsDeleted && i.DeletedAt != nil && i.DeletedAt.Add(r.retention(i.OwnerID, def)).Before(now) {
			out = append(out, *i)
		}
	}
	return out, nil
}

type memTx struct{ db *memDB }

func (t *memTx) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (t *memTx) LockOwner(_ context.Context, ownerID string) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.locks = append(t.db.locks, ownerID)
	return nil
}

// fakeObjects считает вызовы Destroy по ключу
type fakeObjects struct {
	mu        sync.Mutex
	stored    map[string][]byte
	destroyed map[string]int
	failStore bool
	failOn    map[string]bool
	panicOn   map[string]bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		stored:    make(map[string][]byte),
		destroyed: make(map[string]int),
		failOn:    make(map[string]bool),
		panicOn:   make(map[string]bool),
	}
}

func (o *fakeObjects) Store(_ context.Context, key string, data []byte, _ string) (string, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failStore {
		return "", "", errors.New("bucket unavailable")
	}
	o.stored[key] = data
	return "https://cdn.test/" + key, key, nil
}

func (o *fakeObjects) Destroy(_ context.Context, publicID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed[publicID]++
	if o.panicOn[publicID] {
		panic("object store exploded")
	}
	if o.failOn[publicID] {
		return errors.New("destroy failed")
	}
	delete(o.stored, publicID)
	return nil
}

type fakeProber struct{ err error }

func (p fakeProber) Probe(data []byte) (domain.ImageInfo, error) {
	if p.err != nil {
		return domain.ImageInfo{}, p.err
	}
	return domain.ImageInfo{MIMEType: "image/png", Width: 64, Height: 48}, nil
}

const (
	owner      = "owner-1"
	otherOwner = "owner-2"
	retention  = 30 * 24 * time.Hour
)

// env собирает сервисы поверх общей памяти
type env struct {
	db      *memDB
	folders *memFolders
	images  *memImages
	trash   *memTrash
	objects *fakeObjects
	engine  *CascadeEngine
	folderS *FolderService
	imageS  *ImageService
	trashS  *TrashService
	sweeper *Sweeper
}

func newEnv() *env {
	db := newMemDB()
	e := &env{
		db:      db,
		folders: &memFolders{db: db},
		images:  &memImages{db: db},
		trash:   &memTrash{db: db},
		objects: newFakeObjects(),
	}
	tx := &memTx{db: db}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e.engine = NewCascadeEngine(tx, e.folders, e.images, e.objects, logger)
	e.folderS = NewFolderService(tx, e.folders, e.images, e.engine, logger)
	e.imageS = NewImageService(tx, e.folders, e.images, e.objects, fakeProber{}, logger)
	e.trashS = NewTrashService(e.folders, e.images, e.trash, e.engine, retention, logger)
	e.sweeper = NewSweeper(e.trash, e.engine, retention, logger)
	return e
}

func (e *env) folder(id int64) *domain.Folder {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	f, ok := e.db.folders[id]
	if !ok {
		return nil
	}
	copied := *f
	return &copied
}

func (e *env) image(id uuid.UUID) *domain.Image {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	i, ok := e.db.images[id]
	if !ok {
		return nil
	}
	copied := *i
	return &copied
}

// addImage кладёт изображение напрямую; при пустом publicID у изображения нет содержимого
func (e *env) addImage(ownerID string, folderID int64, name, publicID string) uuid.UUID {
	id := uuid.New()
	_ = e.images.Create(context.Background(), &domain.Image{
		ID:           id,
		OwnerID:      ownerID,
		FolderID:     folderID,
		Name:         name,
		OriginalName: name,
		PublicID:     publicID,
	})
	return id
}
