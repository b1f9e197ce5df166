package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/cache"
	"github.com/imrishuroy/go-cached-user-api/internal/users"
	"github.com/imrishuroy/go-cached-user-api/internal/validation"
)

// HandlerConfig groups dependencies for the users handler.
type HandlerConfig struct {
	DB     *bun.DB
	Cache  *cache.Client
	Logger *zap.Logger
}

// RegisterUsersRoutes registers routes for the users API.
//
// Duplicate-email checks live here, at the boundary, before the service is
// invoked; the service itself only knows about records and cache keys.
func RegisterUsersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	svc := users.NewService(cfg.DB, cfg.Cache)

	r.POST("/users", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateUserRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		existing, err := svc.GetByEmail(ctx, req.Email)
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
			return
		}

		created, err := svc.Create(ctx, &users.User{
			Email: req.Email,
			Name:  req.Name,
			Age:   req.Age,
		})
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	})

	r.GET("/users", func(c *gin.Context) {
		ctx := c.Request.Context()

		skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
		if err != nil || skip < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "skip must be a non-negative integer"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil || limit < 1 || limit > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be between 1 and 100"})
			return
		}
		search := c.Query("search")

		list, err := svc.List(ctx, skip, limit, search)
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}

		c.JSON(http.StatusOK, list)
	})

	r.GET("/users/:id", func(c *gin.Context) {
		id, ok := userID(c)
		if !ok {
			return
		}

		u, err := svc.GetByID(c.Request.Context(), id)
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}
		if u == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}

		c.JSON(http.StatusOK, u)
	})

	r.PUT("/users/:id", func(c *gin.Context) {
		ctx := c.Request.Context()

		id, ok := userID(c)
		if !ok {
			return
		}

		var req validation.UpdateUserRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		// a new email must not collide with a different record
		if req.Email != nil {
			existing, err := svc.GetByEmail(ctx, *req.Email)
			if err != nil {
				internalError(c, cfg.Logger, err)
				return
			}
			if existing != nil && existing.ID != id {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
				return
			}
		}

		updated, err := svc.Update(ctx, id, users.UpdateFields{
			Email:    req.Email,
			Name:     req.Name,
			Age:      req.Age,
			IsActive: req.IsActive,
		})
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}

		c.JSON(http.StatusOK, updated)
	})

	r.DELETE("/users/:id", func(c *gin.Context) {
		id, ok := userID(c)
		if !ok {
			return
		}

		deleted, err := svc.Delete(c.Request.Context(), id)
		if err != nil {
			internalError(c, cfg.Logger, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}

		c.Status(http.StatusNoContent)
	})
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user id"})
		return 0, false
	}
	return id, true
}

func internalError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}
