package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/repository"
)

// memoryStore mirrors the row-lock semantics of the Postgres repository:
// one writer per action at a time, changes applied only when fn succeeds.
type memoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	actions map[string]*models.CorrectiveAction
	logs    map[string][]models.ActionStatusLog
	seq     int

	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		locks:   map[string]*sync.Mutex{},
		actions: map[string]*models.CorrectiveAction{},
		logs:    map[string][]models.ActionStatusLog{},
	}
}

func (s *memoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memoryStore) Create(_ context.Context, action *models.CorrectiveAction, log *models.ActionStatusLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	action.ID = s.nextID("action")
	log.ID = s.nextID("log")
	log.ActionID = action.ID
	s.actions[action.ID] = action.Clone()
	s.logs[action.ID] = append(s.logs[action.ID], *log)
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*models.CorrectiveAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.actions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return action.Clone(), nil
}

func (s *memoryStore) ListByEmployee(_ context.Context, filter models.CorrectiveActionFilter) ([]models.CorrectiveAction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[models.ActionStatus]bool{}
	for _, st := range filter.Status {
		wanted[st] = true
	}
	var matched []models.CorrectiveAction
	for _, action := range s.actions {
		if action.EmployeeID != filter.EmployeeID {
			continue
		}
		if len(wanted) > 0 && !wanted[action.Status] {
			continue
		}
		matched = append(matched, *action.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *memoryStore) SumEffectivePoints(_ context.Context, employeeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, action := range s.actions {
		if action.EmployeeID == employeeID {
			total += action.EffectivePoints()
		}
	}
	return total, nil
}

func (s *memoryStore) ListStatusLogs(_ context.Context, actionID string) ([]models.ActionStatusLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActionStatusLog(nil), s.logs[actionID]...), nil
}

func (s *memoryStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *memoryStore) WithLock(ctx context.Context, id string, fn repository.LockedActionFunc) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	base, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	w := &memoryWriter{store: s, base: base}
	if err := fn(ctx, base.Clone(), w); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	committed := base
	if w.saved != nil {
		committed = w.saved
	}
	committed.Signatures = append(base.Signatures, w.signatures...)
	s.actions[id] = committed
	s.logs[id] = append(s.logs[id], w.logs...)
	return nil
}

// put seeds an action directly, bypassing the services.
func (s *memoryStore) put(action *models.CorrectiveAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ID] = action.Clone()
}

type memoryWriter struct {
	store      *memoryStore
	base       *models.CorrectiveAction
	saved      *models.CorrectiveAction
	signatures []models.Signature
	logs       []models.ActionStatusLog
}

func (w *memoryWriter) SaveAction(_ context.Context, action *models.CorrectiveAction) error {
	if w.base.Status == models.ActionStatusVoided {
		return sql.ErrNoRows
	}
	w.saved = action.Clone()
	return nil
}

func (w *memoryWriter) InsertSignature(_ context.Context, sig *models.Signature) error {
	if _, exists := w.base.Signature(sig.SignerType); exists {
		return repository.ErrDuplicateSignature
	}
	for _, staged := range w.signatures {
		if staged.SignerType == sig.SignerType {
			return repository.ErrDuplicateSignature
		}
	}
	w.store.mu.Lock()
	sig.ID = w.store.nextID("sig")
	w.store.mu.Unlock()
	w.signatures = append(w.signatures, *sig)
	return nil
}

func (w *memoryWriter) InsertStatusLog(_ context.Context, log *models.ActionStatusLog) error {
	w.store.mu.Lock()
	log.ID = w.store.nextID("log")
	w.store.mu.Unlock()
	w.logs = append(w.logs, *log)
	return nil
}

type stubEmployees struct {
	employees map[string]*models.Employee
	err       error
}

func (s *stubEmployees) FindByID(_ context.Context, id string) (*models.Employee, error) {
	if s.err != nil {
		return nil, s.err
	}
	employee, ok := s.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return employee, nil
}

type stubHouses struct {
	houses map[string]*models.House
}

func (s *stubHouses) FindByID(_ context.Context, id string) (*models.House, error) {
	house, ok := s.houses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return house, nil
}

type stubCategoryRepo struct {
	mu         sync.Mutex
	categories []models.ViolationCategory
	findCalls  int
	listCalls  int
	err        error
	delay      time.Duration

	// when set, List signals listStarted and waits for listRelease
	listStarted chan struct{}
	listRelease chan struct{}
}

func (s *stubCategoryRepo) FindByID(ctx context.Context, id string) (*models.ViolationCategory, error) {
	s.mu.Lock()
	s.findCalls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	for _, category := range s.categories {
		if category.ID == id {
			c := category
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubCategoryRepo) List(ctx context.Context) ([]models.ViolationCategory, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listStarted != nil {
		close(s.listStarted)
		<-s.listRelease
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.ViolationCategory(nil), s.categories...), nil
}

func (s *stubCategoryRepo) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls, s.listCalls
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (a *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, *log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.logs))
	for i, log := range a.logs {
		out[i] = log.Action
	}
	return out
}
