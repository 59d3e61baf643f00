package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/notify"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/clients"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/products"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/userlogs"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/users"
)

// memStore is an in-memory stand-in for the credential store. It keeps the
// same uniqueness rules as the schema.
type memStore struct {
	mu sync.Mutex

	users       map[int64]*models.User
	nextUserID  int64
	logs        []*models.UserLog
	otps        []*models.OTP
	revoked     map[string]time.Time
	clients     map[string]*models.OAuth2Client
	products    map[int64]*models.Product
	nextProduct int64

	// fail maps an operation name such as "otps.Create" to an injected error.
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		revoked:  map[string]time.Time{},
		clients:  map[string]*models.OAuth2Client{},
		products: map[int64]*models.Product{},
		fail:     map[string]error{},
	}
}

func (s *memStore) injected(op string) error {
	return s.fail[op]
}

type memSnapshot struct {
	users       map[int64]models.User
	nextUserID  int64
	logs        []models.UserLog
	otps        []models.OTP
	revoked     map[string]time.Time
	clients     map[string]models.OAuth2Client
	products    map[int64]models.Product
	nextProduct int64
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		users:       map[int64]models.User{},
		nextUserID:  s.nextUserID,
		revoked:     map[string]time.Time{},
		clients:     map[string]models.OAuth2Client{},
		products:    map[int64]models.Product{},
		nextProduct: s.nextProduct,
	}
	for k, v := range s.users {
		snap.users[k] = *v
	}
	for _, l := range s.logs {
		snap.logs = append(snap.logs, *l)
	}
	for _, o := range s.otps {
		snap.otps = append(snap.otps, *o)
	}
	for k, v := range s.revoked {
		snap.revoked[k] = v
	}
	for k, v := range s.clients {
		snap.clients[k] = *v
	}
	for k, v := range s.products {
		snap.products[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = map[int64]*models.User{}
	for k, v := range snap.users {
		u := v
		s.users[k] = &u
	}
	s.nextUserID = snap.nextUserID
	s.logs = nil
	for _, l := range snap.logs {
		l := l
		s.logs = append(s.logs, &l)
	}
	s.otps = nil
	for _, o := range snap.otps {
		o := o
		s.otps = append(s.otps, &o)
	}
	s.revoked = snap.revoked
	s.clients = map[string]*models.OAuth2Client{}
	for k, v := range snap.clients {
		c := v
		s.clients[k] = &c
	}
	s.products = map[int64]*models.Product{}
	for k, v := range snap.products {
		p := v
		s.products[k] = &p
	}
	s.nextProduct = snap.nextProduct
}

// --- helpers for assertions ---

func (s *memStore) userByEmail(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) activeOTPs(email string, purpose models.OTPPurpose) []models.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OTP
	for _, o := range s.otps {
		if o.Email == email && o.Purpose == purpose && o.Active {
			out = append(out, *o)
		}
	}
	return out
}

func (s *memStore) events(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l.Event)
		}
	}
	return out
}

// --- fake database ---

// memDB satisfies dbx.Database. WithTx snapshots the store and restores it
// when fn fails, which is enough to observe rollback semantics.
type memDB struct {
	store   *memStore
	txCount atomic.Int32
}

func (d *memDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	panic("memDB: raw SQL not supported")
}

func (d *memDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	panic("memDB: raw SQL not supported")
}

func (d *memDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("memDB: raw SQL not supported")
}

func (d *memDB) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	d.txCount.Add(1)
	snap := d.store.snapshot()
	if err := fn(ctx, d); err != nil {
		d.store.restore(snap)
		return err
	}
	return nil
}

// --- repository manager ---

type memRepoManager struct {
	store *memStore
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) users.Repository          { return &memUsers{m.store} }
func (m *memRepoManager) UserLogs(dbx.DBTX) userlogs.Repository    { return &memUserLogs{m.store} }
func (m *memRepoManager) OTPs(dbx.DBTX) otps.Repository            { return &memOTPs{m.store} }
func (m *memRepoManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository {
	return &memRevoked{m.store}
}
func (m *memRepoManager) Clients(dbx.DBTX) clients.Repository   { return &memClients{m.store} }
func (m *memRepoManager) Products(dbx.DBTX) products.Repository { return &memProducts{m.store} }

// --- users ---

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.s.nextUserID++
	c := *u
	c.ID = r.s.nextUserID
	c.CreatedAt = time.Now()
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUsers) List(context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.List"); err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUsers) update(op string, id int64, fn func(u *models.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(op); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	return fn(u)
}

func (r *memUsers) SetActive(_ context.Context, id int64) error {
	return r.update("users.SetActive", id, func(u *models.User) error {
		u.IsActive = true
		return nil
	})
}

func (r *memUsers) UpdateEmail(_ context.Context, id int64, email string) error {
	return r.update("users.UpdateEmail", id, func(u *models.User) error {
		for _, x := range r.s.users {
			if x.ID != id && x.Email == email {
				return common.ErrorAlreadyExists
			}
		}
		u.Email = email
		return nil
	})
}

func (r *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update("users.UpdatePassword", id, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (r *memUsers) SetRefreshToken(_ context.Context, id int64, token string) error {
	return r.update("users.SetRefreshToken", id, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
}

func (r *memUsers) ClearRefreshToken(_ context.Context, id int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok && u.RefreshToken == token {
		u.RefreshToken = ""
	}
	return nil
}

// --- user logs ---

type memUserLogs struct{ s *memStore }

func (r *memUserLogs) Append(_ context.Context, userID int64, event string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("userlogs.Append"); err != nil {
		return err
	}
	r.s.logs = append(r.s.logs, &models.UserLog{
		ID: int64(len(r.s.logs) + 1), UserID: userID, Event: event, Timestamp: time.Now(),
	})
	return nil
}

func (r *memUserLogs) ListByUser(_ context.Context, userID int64) ([]*models.UserLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UserLog
	for _, l := range r.s.logs {
		if l.UserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- otps ---

type memOTPs struct{ s *memStore }

func (r *memOTPs) Create(_ context.Context, o *models.OTP) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("otps.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.s.otps {
		if x.Email == o.Email && x.Purpose == o.Purpose && x.Active {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *o
	c.ID = int64(len(r.s.otps) + 1)
	c.Active = true
	r.s.otps = append(r.s.otps, &c)
	out := c
	return &out, nil
}

func (r *memOTPs) FindActive(_ context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.otps {
		if x.Email == email && x.Purpose == purpose && x.Active {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memOTPs) FindActiveByCode(_ context.Context, email, code string, purpose models.OTPPurpose) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.otps {
		if x.Code == code && x.Purpose == purpose && x.Active && (email == "" || x.Email == email) {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memOTPs) Deactivate(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.otps {
		if x.ID == id && x.Active {
			x.Active = false
			return true, nil
		}
	}
	return false, nil
}

func (r *memOTPs) DeactivateAll(_ context.Context, email string, purpose models.OTPPurpose) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.otps {
		if x.Email == email && x.Purpose == purpose && x.Active {
			x.Active = false
			n++
		}
	}
	return n, nil
}

// --- blacklist ---

type memRevoked struct{ s *memStore }

func (r *memRevoked) Add(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("revoked.Add"); err != nil {
		return false, err
	}
	if _, ok := r.s.revoked[token]; ok {
		return false, nil
	}
	r.s.revoked[token] = expiresAt
	return true, nil
}

func (r *memRevoked) Exists(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("revoked.Exists"); err != nil {
		return false, err
	}
	_, ok := r.s.revoked[token]
	return ok, nil
}

func (r *memRevoked) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("revoked.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for tok, exp := range r.s.revoked {
		if exp.Before(now) {
			delete(r.s.revoked, tok)
			n++
		}
	}
	return n, nil
}

// --- clients ---

type memClients struct{ s *memStore }

func (r *memClients) Create(_ context.Context, c *models.OAuth2Client) (*models.OAuth2Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[c.ClientID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	cp := *c
	cp.ID = int64(len(r.s.clients) + 1)
	r.s.clients[c.ClientID] = &cp
	out := cp
	return &out, nil
}

func (r *memClients) GetByClientID(_ context.Context, clientID string) (*models.OAuth2Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[clientID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *c
	return &out, nil
}

// --- products ---

type memProducts struct{ s *memStore }

func (r *memProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("products.Create"); err != nil {
		return nil, err
	}
	r.s.nextProduct++
	c := *p
	c.ID = r.s.nextProduct
	r.s.products[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memProducts) Get(_ context.Context, id int64) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (r *memProducts) Update(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *p
	r.s.products[p.ID] = &c
	return nil
}

func (r *memProducts) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *memProducts) sorted(less func(a, b *models.Product) bool) []*models.Product {
	out := make([]*models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		c := *p
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b *models.Product) bool { return a.ID < b.ID }

func (r *memProducts) List(context.Context) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("products.List"); err != nil {
		return nil, err
	}
	return r.sorted(byID), nil
}

func (r *memProducts) Categories(context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range r.sorted(byID) {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memProducts) ByCategory(_ context.Context, category string) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Product
	for _, p := range r.sorted(byID) {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) Limit(_ context.Context, n int) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(byID)
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (r *memProducts) Sorted(_ context.Context, column string, desc bool) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if column != "price" && column != "title" && column != "id" {
		// the fake only understands the columns the tests sort by
		return r.sorted(byID), nil
	}
	less := func(a, b *models.Product) bool {
		switch column {
		case "price":
			if a.Price != b.Price {
				return a.Price < b.Price != desc
			}
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title != desc
			}
		}
		return a.ID < b.ID
	}
	return r.sorted(less), nil
}

// --- notifications ---

type fakeNotifier struct {
	mu     sync.Mutex
	msgs   []notify.Message
	refuse bool
}

func (n *fakeNotifier) Enqueue(msg notify.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refuse {
		return false
	}
	n.msgs = append(n.msgs, msg)
	return true
}

func (n *fakeNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}
