package users

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// User is the record stored in the users table. The database assigns the
// id; created_at is set once at insert and updated_at stays null until the
// first mutation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	Email     string     `bun:"email,notnull,unique" json:"email"` // unique across all records
	Name      string     `bun:"name,notnull" json:"name"`
	Age       *int       `bun:"age" json:"age"`
	IsActive  bool       `bun:"is_active,notnull" json:"is_active"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at" json:"updated_at"`
}

// UpdateFields carries a partial update: nil means "leave untouched".
type UpdateFields struct {
	Email    *string
	Name     *string
	Age      *int
	IsActive *bool
}

// ListKeyPattern matches every list/search cache entry. List keys encode
// arbitrary pagination/search parameters so they cannot be invalidated
// surgically; any mutation wipes the whole namespace.
const ListKeyPattern = "users:*"

// CacheKey is the cache key for a single user record.
func CacheKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// ListCacheKey encodes the full query shape so distinct queries never
// collide. An absent search collapses to the "none" sentinel.
func ListCacheKey(skip, limit int, search string) string {
	if search == "" {
		search = "none"
	}
	return fmt.Sprintf("users:skip:%d:limit:%d:search:%s", skip, limit, search)
}
