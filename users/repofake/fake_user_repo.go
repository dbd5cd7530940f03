package fakeuserrepo

import (
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[int64]*users.Account
	emailIds map[string]int64 // email to account id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[int64]*users.Account),
		emailIds: make(map[string]int64),
	}
}

// Upsert stores account, assigning the next id when ID is zero.
func (r *FakeAccountRepo) Upsert(account *users.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == 0 {
		r.nextID++
		account.ID = r.nextID
	} else if account.ID > r.nextID {
		r.nextID = account.ID
	}

	stored := *account
	r.accounts[account.ID] = &stored
	r.emailIds[normaliseEmail(account.Email)] = account.ID
	return nil
}

func (r *FakeAccountRepo) Delete(email string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	id, ok := r.emailIds[normaliseEmail(email)]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.emailIds, normaliseEmail(email))
	delete(r.accounts, id)
	return nil
}

func (r *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIds[normaliseEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	account := *r.accounts[id]
	return &account, nil
}

func (r *FakeAccountRepo) GetByID(id int64) (*users.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	account := *stored
	return &account, nil
}

func (r *FakeAccountRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.accounts)
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
