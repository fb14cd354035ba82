package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartbus-service/internal/domain"
	"smartbus-service/pkg/jwt"
	"smartbus-service/pkg/validation"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// Service contains user business logic.
type Service struct {
	store Store
	cost  int
}

// NewService creates a user service hashing passwords at the given bcrypt cost.
func NewService(store Store, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: bcryptCost}
}

// Register creates an account and returns a JWT for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = validation.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = jwt.RolePassenger
	}

	var errs validation.Errors
	errs.Check(validation.ValidateEmail(req.Email), "email", "a valid email is required")
	errs.Check(validation.ValidatePassword(req.Password), "password", "password must be at least 6 characters")
	errs.Check(validation.ValidateName(req.Name), "name", "name must be at least 2 characters")
	errs.Check(validation.ValidatePhone(req.Phone), "phone", "a valid mobile number is required")
	errs.Check(req.Role == jwt.RolePassenger || req.Role == jwt.RoleAdmin, "role", "role must be passenger or admin")
	if !errs.Empty() {
		return nil, domain.ValidationError{Fields: errs}
	}

	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ConflictError{Msg: "User already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Message: "User created successfully", Token: token, User: u.Profile()}, nil
}

// Login authenticates a user and returns a JWT. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = validation.NormalizeEmail(req.Email)

	var errs validation.Errors
	errs.Check(validation.ValidateEmail(req.Email), "email", "a valid email is required")
	errs.Check(req.Password != "", "password", "password is required")
	if !errs.Empty() {
		return nil, domain.ValidationError{Fields: errs}
	}

	invalid := domain.UnauthorizedError{Msg: "Invalid credentials"}
	u, err := s.store.GetByEmail(ctx, req.Email)
	if domain.IsNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, invalid
	}

	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Message: "Login successful", Token: token, User: u.Profile()}, nil
}

// GetByID fetches a single user by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}
