// Package memory provides in-process implementations of the repository
// interfaces. It backs the test suites and local runs without Postgres, and
// enforces the same uniqueness and overlap rules as the SQL schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	recovery  map[uuid.UUID]domain.RecoveryRecord
	estates   map[uuid.UUID]domain.Estate
	bookings  []domain.Booking
	favorites map[[2]uuid.UUID]domain.Favorite
	now       func() time.Time
}

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]domain.User),
		recovery:  make(map[uuid.UUID]domain.RecoveryRecord),
		estates:   make(map[uuid.UUID]domain.Estate),
		favorites: make(map[[2]uuid.UUID]domain.Favorite),
		now:       time.Now,
	}
}

// WithClock sets the time source used for generated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Users() repository.UserRepository { return userStore{s} }
func (s *Store) Recovery() repository.RecoveryRepository { return recoveryStore{s} }
func (s *Store) Estates() repository.EstateRepository { return estateStore{s} }
func (s *Store) Bookings() repository.BookingRepository { return bookingStore{s} }
func (s *Store) Favorites() repository.FavoriteRepository { return favoriteStore{s} }

// ---------- users ----------

type userStore struct{ s *Store }

func (u userStore) uniqueConflict(candidate domain.User) error {
	for id, other := range u.s.users {
		if id == candidate.ID {
			continue
		}
		switch {
		case other.Email == candidate.Email:
			return domain.ErrDuplicate.WithMessage("email is already in use")
		case other.Handle == candidate.Handle:
			return domain.ErrDuplicate.WithMessage("username is already taken")
		case candidate.Phone != "" && other.Phone == candidate.Phone:
			return domain.ErrDuplicate.WithMessage("phone number is already in use")
		}
	}
	return nil
}

func (u userStore) Create(_ context.Context, in *domain.User) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user := *in
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := u.uniqueConflict(user); err != nil {
		return nil, err
	}
	now := u.s.now()
	user.Active = true
	user.CreatedAt, user.UpdatedAt = now, now
	u.s.users[user.ID] = user
	return &user, nil
}

func (u userStore) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u userStore) FindByEmailOrHandle(_ context.Context, login string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if user.Email == login || user.Handle == login {
			return &user, nil
		}
	}
	return nil, nil
}

func (u userStore) UpdatePasswordAndTimestamp(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return nil
}

func (u userStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil
	}
	user.PasswordHash = hash
	u.s.users[id] = user
	return nil
}

func (u userStore) UpdateProfile(_ context.Context, in *domain.User) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[in.ID]
	if !ok || !user.Active {
		return nil, domain.ErrUserNotFound
	}
	user.Handle, user.Email, user.Phone = in.Handle, in.Email, in.Phone
	user.FirstName, user.LastName, user.Role = in.FirstName, in.LastName, in.Role
	if err := u.uniqueConflict(user); err != nil {
		return nil, err
	}
	user.UpdatedAt = u.s.now()
	u.s.users[user.ID] = user
	return &user, nil
}

func (u userStore) Deactivate(_ context.Context, id uuid.UUID) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok || !user.Active {
		return domain.ErrUserNotFound
	}
	user.Active = false
	u.s.users[id] = user
	return nil
}

func (u userStore) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	var all []domain.User
	for _, user := range u.s.users {
		if user.Active {
			all = append(all, user)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

// ---------- recovery ----------

type recoveryStore struct{ s *Store }

func (r recoveryStore) UpsertForUser(_ context.Context, rec *domain.RecoveryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for uid, other := range r.s.recovery {
		if uid != rec.UserID && other.CodeHash == rec.CodeHash {
			return domain.ErrDuplicate
		}
	}
	r.s.recovery[rec.UserID] = *rec
	return nil
}

func (r recoveryStore) FindByDigest(_ context.Context, codeHash string, now time.Time) (*domain.RecoveryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.recovery {
		if rec.CodeHash == codeHash && !rec.ExpiredAt(now) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (r recoveryStore) DeleteForUserDigest(_ context.Context, userID uuid.UUID, codeHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rec, ok := r.s.recovery[userID]; ok && rec.CodeHash == codeHash {
		delete(r.s.recovery, userID)
	}
	return nil
}

func (r recoveryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for uid, rec := range r.s.recovery {
		if rec.ExpiredAt(now) {
			delete(r.s.recovery, uid)
			n++
		}
	}
	return n, nil
}

func (r recoveryStore) ConsumeAndSetPassword(_ context.Context, userID uuid.UUID, codeHash, hash string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.recovery[userID]
	if !ok || rec.CodeHash != codeHash || rec.ExpiredAt(now) {
		return false, nil
	}
	user, ok := r.s.users[userID]
	if !ok || !user.Active {
		return false, domain.ErrUserNotFound
	}
	delete(r.s.recovery, userID)
	user.PasswordHash = hash
	user.PasswordChangedAt = &now
	user.UpdatedAt = now
	r.s.users[userID] = user
	return true, nil
}

// ---------- estates ----------

type estateStore struct{ s *Store }

func (e estateStore) Create(_ context.Context, in *domain.Estate) (*domain.Estate, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	est := *in
	if est.ID == uuid.Nil {
		est.ID = uuid.New()
	}
	if _, ok := e.s.users[est.OwnerID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	est.CreatedAt = e.s.now()
	e.s.estates[est.ID] = est
	return &est, nil
}

func (e estateStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Estate, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	est, ok := e.s.estates[id]
	if !ok {
		return nil, nil
	}
	return &est, nil
}

func (e estateStore) Update(_ context.Context, in *domain.Estate) (*domain.Estate, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	est, ok := e.s.estates[in.ID]
	if !ok {
		return nil, domain.ErrEstateNotFound
	}
	est.Location, est.Description, est.Price, est.Status = in.Location, in.Description, in.Price, in.Status
	est.ForRent, est.Sold, est.VisibleHouse = in.ForRent, in.Sold, in.VisibleHouse
	e.s.estates[est.ID] = est
	return &est, nil
}

func (e estateStore) Delete(_ context.Context, id uuid.UUID) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.estates[id]; !ok {
		return domain.ErrEstateNotFound
	}
	delete(e.s.estates, id)

	kept := e.s.bookings[:0]
	for _, b := range e.s.bookings {
		if b.EstateID != id {
			kept = append(kept, b)
		}
	}
	e.s.bookings = kept
	for key := range e.s.favorites {
		if key[1] == id {
			delete(e.s.favorites, key)
		}
	}
	return nil
}

func (e estateStore) List(_ context.Context, f domain.EstateFilter) ([]domain.Estate, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	var all []domain.Estate
	for _, est := range e.s.estates {
		if f.ForRent != nil && est.ForRent != *f.ForRent {
			continue
		}
		if f.VisibleHouse != nil && est.VisibleHouse != *f.VisibleHouse {
			continue
		}
		if f.OwnerID != nil && est.OwnerID != *f.OwnerID {
			continue
		}
		all = append(all, est)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Limit, f.Offset), nil
}

// ---------- bookings ----------

type bookingStore struct{ s *Store }

func (b bookingStore) rentFor(estateID uuid.UUID) []domain.Booking {
	var out []domain.Booking
	for _, bk := range b.s.bookings {
		if bk.EstateID == estateID && bk.BlocksCalendar() {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(*out[j].StartDate) })
	return out
}

func (b bookingStore) FindRentBookingsForEstate(_ context.Context, estateID uuid.UUID) ([]domain.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return b.rentFor(estateID), nil
}

func (b bookingStore) InsertWithConflictCheck(ctx context.Context, in *domain.Booking, overlaps repository.OverlapFunc) (*domain.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := b.s.estates[in.EstateID]; !ok {
		return nil, domain.ErrEstateNotFound
	}
	if want, ok := in.Interval(); ok && in.Type == domain.BookingRent {
		for _, existing := range b.rentFor(in.EstateID) {
			if have, ok := existing.Interval(); ok && overlaps(have, want) {
				return nil, domain.ErrOverlap
			}
		}
	}

	bk := *in
	if bk.ID == uuid.Nil {
		bk.ID = uuid.New()
	}
	bk.TransactionDate = b.s.now()
	b.s.bookings = append(b.s.bookings, bk)
	return &bk, nil
}

func (b bookingStore) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	var out []domain.Booking
	for i := len(b.s.bookings) - 1; i >= 0; i-- {
		bk := b.s.bookings[i]
		if bk.BuyerID == userID || bk.SellerID == userID {
			out = append(out, bk)
		}
	}
	return out, nil
}

// ---------- favorites ----------

type favoriteStore struct{ s *Store }

func (f favoriteStore) Add(_ context.Context, userID, estateID uuid.UUID) (*domain.Favorite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.estates[estateID]; !ok {
		return nil, domain.ErrEstateNotFound
	}
	key := [2]uuid.UUID{userID, estateID}
	if _, ok := f.s.favorites[key]; ok {
		return nil, domain.ErrDuplicate.WithMessage("estate is already in favorites")
	}
	fav := domain.Favorite{UserID: userID, EstateID: estateID, CreatedAt: f.s.now()}
	f.s.favorites[key] = fav
	return &fav, nil
}

func (f favoriteStore) Remove(_ context.Context, userID, estateID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	key := [2]uuid.UUID{userID, estateID}
	if _, ok := f.s.favorites[key]; !ok {
		return false, nil
	}
	delete(f.s.favorites, key)
	return true, nil
}

func (f favoriteStore) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Estate, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	var favs []domain.Favorite
	for key, fav := range f.s.favorites {
		if key[0] == userID {
			favs = append(favs, fav)
		}
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].CreatedAt.After(favs[j].CreatedAt) })

	out := make([]domain.Estate, 0, len(favs))
	for _, fav := range favs {
		if est, ok := f.s.estates[fav.EstateID]; ok {
			out = append(out, est)
		}
	}
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
