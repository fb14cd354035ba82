package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"smartbus-service/internal/domain"
	"smartbus-service/pkg/jwt"
)

func init() {
	if err := jwt.Init("test-secret"); err != nil {
		panic(err)
	}
}

type memStore struct {
	mu      sync.Mutex
	byEmail map[string]*User
}

func newMemStore() *memStore { return &memStore{byEmail: map[string]*User{}} }

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ConflictError{Msg: "User already exists"}
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.NotFoundError{Resource: "User"}
}

func (m *memStore) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "User"}
}

func validRegister() RegisterRequest {
	return RegisterRequest{
		Email:    "Asha@Example.com ",
		Password: "secret123",
		Name:     "Asha Rao",
		Phone:    "+91 98765 43210",
	}
}

func TestRegisterIssuesTokenAndDefaultsRole(t *testing.T) {
	svc := NewService(newMemStore(), bcrypt.MinCost)

	resp, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Message != "User created successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.User.Email != "asha@example.com" || resp.User.Role != jwt.RolePassenger {
		t.Errorf("user = %+v", resp.User)
	}
	claims, err := jwt.Validate(resp.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != jwt.RolePassenger {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, bcrypt.MinCost)
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Register(context.Background(), validRegister())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.byEmail) != 1 {
		t.Fatalf("expected one stored user, got %d", len(store.byEmail))
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemStore(), bcrypt.MinCost)
	req := RegisterRequest{Email: "nope", Password: "123", Name: "A", Phone: "12", Role: "root"}

	_, err := svc.Register(context.Background(), req)
	var verr domain.ValidationError
	if !asValidation(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"email", "password", "name", "phone", "role"} {
		if !fields[want] {
			t.Errorf("missing error for %s in %+v", want, verr.Fields)
		}
	}
}

func asValidation(err error, target *domain.ValidationError) bool {
	v, ok := err.(domain.ValidationError)
	if ok {
		*target = v
	}
	return ok
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	svc := NewService(newMemStore(), bcrypt.MinCost)
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "asha@example.com", Password: "wrong-password"})
	if _, ok := err.(domain.UnauthorizedError); !ok {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if resp != nil {
		t.Fatal("no token may be issued on failed login")
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	if _, ok := err.(domain.UnauthorizedError); !ok {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc := NewService(newMemStore(), bcrypt.MinCost)
	reg, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ASHA@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Message != "Login successful" || resp.User.ID != reg.User.ID || resp.Token == "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandlerRegisterLoginMe(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewService(newMemStore(), bcrypt.MinCost)).Routes())
	defer srv.Close()

	body := `{"email":"ravi@example.com","password":"secret123","name":"Ravi","phone":"9876543210"}`
	res, err := http.Post(srv.URL+"/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", res.StatusCode)
	}

	res, err = http.Post(srv.URL+"/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var dup map[string]any
	json.NewDecoder(res.Body).Decode(&dup)
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest || dup["error"] != "User already exists" {
		t.Fatalf("duplicate register: %d %v", res.StatusCode, dup)
	}

	res, err = http.Post(srv.URL+"/login", "application/json",
		strings.NewReader(`{"email":"ravi@example.com","password":"secret123"}`))
	if err != nil {
		t.Fatal(err)
	}
	var auth AuthResponse
	json.NewDecoder(res.Body).Decode(&auth)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || auth.Token == "" {
		t.Fatalf("login: %d %+v", res.StatusCode, auth)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var me map[string]any
	json.NewDecoder(res.Body).Decode(&me)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || me["email"] != "ravi@example.com" {
		t.Fatalf("me: %d %v", res.StatusCode, me)
	}
	if _, leaked := me["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	h := NewHandler(NewService(newMemStore(), bcrypt.MinCost))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"x@example.com","password":"whatever"}`))
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("unexpected token in %s", rec.Body.String())
	}
}

func TestRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err = NewRepository(db).Create(context.Background(), &User{ID: "u1", Email: "a@b.co"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	cols := []string{"id", "email", "password_hash", "name", "phone", "role", "created_at"}
	mock.ExpectQuery("FROM users WHERE email").WithArgs("a@b.co").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "a@b.co", "hash", "A B", "9876543210", "admin", time.Now()))
	mock.ExpectQuery("FROM users WHERE email").WithArgs("none@b.co").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewRepository(db)
	u, err := repo.GetByEmail(context.Background(), "a@b.co")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != "admin" || u.PasswordHash != "hash" {
		t.Errorf("user = %+v", u)
	}
	if _, err := repo.GetByEmail(context.Background(), "none@b.co"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
