package httpx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/supabase"
	"github.com/google/uuid"
)

// In-memory stand-ins for the Postgres repositories and Supabase. They
// return the same error kinds the real implementations do.

type fakeProducts struct {
	mu   sync.Mutex
	byID map[string]market.Product
	seq  int
}

func newFakeProducts() *fakeProducts { return &fakeProducts{byID: map[string]market.Product{}} }

func (f *fakeProducts) sorted() []market.Product {
	out := make([]market.Product, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeProducts) List(ctx context.Context, q market.ListQuery) (market.ProductPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var match []market.Product
	for _, p := range f.sorted() {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			match = append(match, p)
		}
	}
	page := market.ProductPage{Data: []market.Product{}, Total: len(match), CurrentPage: q.Page,
		TotalPages: market.TotalPages(len(match), q.Limit)}
	for i := q.Offset(); i < len(match) && i < q.Offset()+q.Limit; i++ {
		page.Data = append(page.Data, match[i])
	}
	return page, nil
}

func (f *fakeProducts) Nearby(ctx context.Context, q market.NearbyQuery) ([]market.Product, error) {
	return []market.Product{}, nil
}

func (f *fakeProducts) Get(ctx context.Context, id string) (market.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return market.Product{}, fmt.Errorf("get %s: %w", id, market.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProducts) Create(ctx context.Context, userID string, in market.ProductInput) (market.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p := market.Product{
		ID: uuid.NewString(), UserID: userID, Name: in.Name, Description: in.Description,
		Price: in.Price, ImageURL: in.ImageURL,
		CreatedAt: time.Unix(int64(f.seq), 0),
	}
	if in.HasLocation() {
		p.Latitude, p.Longitude = in.Latitude, in.Longitude
	}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProducts) owned(id, userID string) (market.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return p, market.ErrNotFound
	}
	if p.UserID != userID {
		return p, market.ErrForbidden
	}
	return p, nil
}

func (f *fakeProducts) Update(ctx context.Context, id, userID string, src market.ProductSource) (market.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.owned(id, userID)
	if err != nil {
		return market.Product{}, err
	}
	in, err := src()
	if err != nil {
		return market.Product{}, err
	}
	if err := in.Validate(); err != nil {
		return market.Product{}, err
	}
	p.Name, p.Description, p.Price = in.Name, in.Description, in.Price
	f.byID[id] = p
	return p, nil
}

func (f *fakeProducts) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(id, userID); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeProducts) ListByOwner(ctx context.Context, userID string) ([]market.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []market.Product{}
	for _, p := range f.sorted() {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCarts struct {
	mu       sync.Mutex
	products *fakeProducts
	carts    map[string]string // user -> cart id
	items    map[string]market.CartItem
}

func newFakeCarts(products *fakeProducts) *fakeCarts {
	return &fakeCarts{products: products, carts: map[string]string{}, items: map[string]market.CartItem{}}
}

func (f *fakeCarts) cartOf(userID string) string {
	id, ok := f.carts[userID]
	if !ok {
		id = uuid.NewString()
		f.carts[userID] = id
	}
	return id
}

func (f *fakeCarts) Items(ctx context.Context, userID string) ([]market.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cartID := f.cartOf(userID)
	out := []market.CartLine{}
	for _, it := range f.items {
		if it.CartID != cartID {
			continue
		}
		p, _ := f.products.Get(ctx, it.ProductID)
		out = append(out, market.CartLine{ID: it.ID, Quantity: it.Quantity,
			Product: market.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, ImageURL: p.ImageURL}})
	}
	return out, nil
}

func (f *fakeCarts) AddItem(ctx context.Context, userID string, in market.AddItemInput) (market.CartItem, error) {
	if _, err := f.products.Get(ctx, in.ProductID); err != nil {
		return market.CartItem{}, market.Invalid("product does not exist")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cartID := f.cartOf(userID)
	for id, it := range f.items {
		if it.CartID == cartID && it.ProductID == in.ProductID {
			it.Quantity += in.Quantity
			f.items[id] = it
			return it, nil
		}
	}
	it := market.CartItem{ID: uuid.NewString(), CartID: cartID, ProductID: in.ProductID, Quantity: in.Quantity}
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeCarts) RemoveItem(ctx context.Context, itemID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return market.ErrNotFound
	}
	if it.CartID != f.carts[userID] {
		return market.ErrForbidden
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeCarts) Clear(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, it := range f.items {
		if it.CartID == f.carts[userID] {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

type fakeReviews struct {
	mu       sync.Mutex
	products *fakeProducts
	list     []market.Review
}

func (f *fakeReviews) ListByProduct(ctx context.Context, productID string) ([]market.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []market.Review{}
	for i := len(f.list) - 1; i >= 0; i-- {
		if f.list[i].ProductID == productID {
			out = append(out, f.list[i])
		}
	}
	return out, nil
}

func (f *fakeReviews) Create(ctx context.Context, userID string, in market.ReviewInput) (market.Review, error) {
	if _, err := f.products.Get(ctx, in.ProductID); err != nil {
		return market.Review{}, market.Invalid("product does not exist")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rv := range f.list {
		if rv.ProductID == in.ProductID && rv.UserID == userID {
			return market.Review{}, &market.Error{Kind: market.ErrConflict, Msg: "you have already reviewed this product"}
		}
	}
	rv := market.Review{ID: uuid.NewString(), ProductID: in.ProductID, UserID: userID, Rating: in.Rating, Comment: in.Comment}
	f.list = append(f.list, rv)
	return rv, nil
}

func (f *fakeReviews) Summary(ctx context.Context, productID string) (market.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count, sum int64
	for _, rv := range f.list {
		if rv.ProductID == productID {
			count++
			sum += int64(rv.Rating)
		}
	}
	return market.NewRatingSummary(productID, count, sum), nil
}

type fakeRatings struct{ aggs map[string][2]int64 }

func (f *fakeRatings) RatingAggregate(ctx context.Context, productID string) (int64, int64, bool, error) {
	a, ok := f.aggs[productID]
	return a[0], a[1], ok, nil
}

// fakeAuth issues "tok-<user id>" access tokens; fakeResolver accepts them.
type fakeAuth struct {
	mu    sync.Mutex
	users map[string]supabase.User
	pass  map[string]string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]supabase.User{}, pass: map[string]string{}}
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, &supabase.Error{StatusCode: 422, Code: "user_already_exists", Message: "User already registered"}
	}
	if len(password) < 6 {
		return nil, &supabase.Error{StatusCode: 422, Code: "weak_password", Message: "Password should be at least 6 characters."}
	}
	u := supabase.User{ID: uuid.NewString(), Email: email}
	f.users[email], f.pass[email] = u, password
	return &supabase.SignUpResult{User: &u}, nil
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || f.pass[email] != password {
		return nil, &supabase.Error{StatusCode: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return &supabase.Session{AccessToken: "tok-" + u.ID, TokenType: "bearer", ExpiresIn: 3600, RefreshToken: "ref-" + u.ID, User: &u}, nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context, refreshToken string) (*supabase.Session, error) {
	id, ok := strings.CutPrefix(refreshToken, "ref-")
	if !ok {
		return nil, &supabase.Error{StatusCode: 400, Message: "Invalid Refresh Token"}
	}
	return &supabase.Session{AccessToken: "tok-" + id, TokenType: "bearer", ExpiresIn: 3600, RefreshToken: refreshToken}, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, token string) (identity.Identity, error) {
	id, ok := strings.CutPrefix(token, "tok-")
	if !ok || id == "" {
		return identity.Identity{}, market.ErrUnauthenticated
	}
	return identity.Identity{UserID: id}, nil
}

type emitted struct {
	topic, eventType, key string
	payload               any
}

type recordingEvents struct {
	mu   sync.Mutex
	sent []emitted
}

func (e *recordingEvents) Emit(ctx context.Context, topic, eventType, key string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, emitted{topic, eventType, key, payload})
}

func (e *recordingEvents) topics() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.sent))
	for _, s := range e.sent {
		out = append(out, s.topic)
	}
	return out
}

type memCache struct {
	mu   sync.Mutex
	m    map[string]any
	hits int
}

func newMemCache() *memCache { return &memCache{m: map[string]any{}} }

func (c *memCache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	got, ok := c.m[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*(v.(*market.Product)) = got.(market.Product)
	return true, nil
}

func (c *memCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}

type fakeUploader struct{ err error }

func (f fakeUploader) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://demo.supabase.co/storage/v1/object/upload/sign/" + bucket + "/" + objectPath + "?token=t", nil
}

func (f fakeUploader) PublicURL(bucket, objectPath string) string {
	return "https://demo.supabase.co/storage/v1/object/public/" + bucket + "/" + objectPath
}
