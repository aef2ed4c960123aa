package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"trivia-service/internal/domain"
)

// QuestionLoader fetches a question bank from a backing store (file, Postgres).
type QuestionLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// QuestionRepository keeps validated question banks in memory and reloads them
// after the TTL. A bank that fails to reload keeps serving its last good version.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	banks map[string]bankEntry
}

type bankEntry struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func (e bankEntry) fresh(now time.Time) bool {
	return e.expiresAt.After(now)
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		banks:  make(map[string]bankEntry),
	}
}

// GetBank returns the bank with its own copy of the question slice, so callers may shuffle it.
func (r *QuestionRepository) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	if entry, ok := r.entry(bankID); ok && entry.fresh(r.clock()) {
		return copyBank(entry.bank), nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		return r.reload(ctx, bankID)
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return copyBank(result.(domain.QuestionBank)), nil
}

func (r *QuestionRepository) entry(bankID string) (bankEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.banks[bankID]
	return entry, ok
}

// reload loads and validates bankID. A failed reload falls back to the previous
// bank unless the bank no longer exists.
func (r *QuestionRepository) reload(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	now := r.clock()
	previous, cached := r.entry(bankID)
	if cached && previous.fresh(now) {
		return previous.bank, nil
	}

	bank, err := r.loader.LoadBank(ctx, bankID)
	if err == nil {
		err = validateBank(bank)
	}
	if err != nil {
		if cached && !errors.Is(err, domain.ErrQuestionBankNotFound) {
			return previous.bank, nil
		}
		return domain.QuestionBank{}, err
	}

	r.mu.Lock()
	r.banks[bankID] = bankEntry{bank: bank, expiresAt: now.Add(r.ttlWithJitter())}
	r.mu.Unlock()
	return bank, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func validateBank(bank domain.QuestionBank) error {
	if len(bank.Questions) == 0 {
		return domain.Invalid("questions", fmt.Sprintf("Question bank %q is empty.", bank.ID))
	}
	for i, q := range bank.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d of bank %q: %w", i, bank.ID, err)
		}
	}
	return nil
}

func copyBank(bank domain.QuestionBank) domain.QuestionBank {
	questions := make([]domain.Question, len(bank.Questions))
	copy(questions, bank.Questions)
	bank.Questions = questions
	return bank
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	banks map[string]domain.QuestionBank
}

func NewStaticQuestionLoader(banks map[string]domain.QuestionBank) *StaticQuestionLoader {
	return &StaticQuestionLoader{banks: banks}
}

func (l *StaticQuestionLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	if bank, ok := l.banks[bankID]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
}

// FileQuestionLoader reads a YAML (or JSON) file holding a list of questions.
// Every bank id resolves to the same file.
type FileQuestionLoader struct {
	path string
}

func NewFileQuestionLoader(path string) *FileQuestionLoader {
	return &FileQuestionLoader{path: path}
}

func (l *FileQuestionLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
		}
		return domain.QuestionBank{}, fmt.Errorf("read questions: %w", err)
	}
	var questions []domain.Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("parse questions: %w", err)
	}
	return domain.QuestionBank{ID: bankID, Questions: questions}, nil
}
