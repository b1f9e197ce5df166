package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/imrishuroy/go-cached-user-api/internal/cache"
)

// Service orchestrates reads and writes against the database and the cache
// client. The database is the sole source of truth; the cache holds
// disposable, time-limited copies, so every method works correctly (only
// slower) when the cache is unavailable.
//
// Not-found is a valid outcome and comes back as (nil, nil) / false, never
// as an error. Only database failures propagate.
type Service struct {
	db      bun.IDB
	cache   *cache.Client
	nowFunc func() time.Time
}

// NewService creates a new user Service.
func NewService(db bun.IDB, cacheClient *cache.Client) *Service {
	return &Service{
		db:      db,
		cache:   cacheClient,
		nowFunc: time.Now,
	}
}

// GetByID fetches a user by primary key, read-through cached under
// user:{id} with the default TTL.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	key := CacheKey(id)

	var cached User
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	u := new(User)
	err := s.db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	s.cache.Set(ctx, key, u, cache.DefaultTTL)
	return u, nil
}

// GetByEmail fetches a user by email, always from the database: this path
// backs uniqueness checks, where staleness is unacceptable.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := new(User)
	err := s.db.NewSelect().Model(u).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

// List returns a page of users with an optional case-insensitive substring
// match on name or email. The page is cached under a key encoding all
// three parameters with the shorter list TTL.
func (s *Service) List(ctx context.Context, skip, limit int, search string) ([]User, error) {
	key := ListCacheKey(skip, limit, search)

	var cached []User
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	out := make([]User, 0, limit)
	q := s.db.NewSelect().Model(&out)
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("lower(name) LIKE ?", pattern).
				WhereOr("lower(email) LIKE ?", pattern)
		})
	}
	if err := q.Order("id ASC").Offset(skip).Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	s.cache.Set(ctx, key, out, cache.ListTTL)
	return out, nil
}

// Create inserts a new record with is_active defaulted true. The database
// assigns the id. Every list cache entry is invalidated afterwards; no
// single-record key existed yet for the new id.
func (s *Service) Create(ctx context.Context, u *User) (*User, error) {
	u.IsActive = true
	u.CreatedAt = s.nowFunc().UTC()
	u.UpdatedAt = nil

	if _, err := s.db.NewInsert().Model(u).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.cache.DeletePattern(ctx, ListKeyPattern)
	return u, nil
}

// Update applies a partial update to an existing record: only non-nil
// fields change. Returns (nil, nil) when the id does not exist. On success
// it invalidates the user:{id} key and the whole list namespace.
func (s *Service) Update(ctx context.Context, id int64, fields UpdateFields) (*User, error) {
	u := new(User)
	err := s.db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if fields.Email != nil {
		u.Email = *fields.Email
	}
	if fields.Name != nil {
		u.Name = *fields.Name
	}
	if fields.Age != nil {
		u.Age = fields.Age
	}
	if fields.IsActive != nil {
		u.IsActive = *fields.IsActive
	}
	now := s.nowFunc().UTC()
	u.UpdatedAt = &now

	if _, err := s.db.NewUpdate().Model(u).WherePK().Exec(ctx); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.cache.Delete(ctx, CacheKey(id))
	s.cache.DeletePattern(ctx, ListKeyPattern)
	return u, nil
}

// Delete removes a record. Returns false when the id does not exist.
// Deletion is hard; on success the user:{id} key and the list namespace
// are invalidated.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	u := new(User)
	err := s.db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}

	if _, err := s.db.NewDelete().Model(u).WherePK().Exec(ctx); err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	s.cache.Delete(ctx, CacheKey(id))
	s.cache.DeletePattern(ctx, ListKeyPattern)
	return true, nil
}
