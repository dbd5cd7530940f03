package users

type AccountRepo interface {
	Upsert(account *Account) error
	Delete(email string) error
	GetByEmail(email string) (*Account, error)
	GetByID(id int64) (*Account, error)
	Count() int
}
