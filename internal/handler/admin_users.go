package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/repository"
)

// UserStatusStore toggles account activation.
type UserStatusStore interface {
    SetActive(ctx context.Context, id uint64, active bool) (model.User, error)
}

// SessionRevoker ends every refresh session of a user.
type SessionRevoker interface {
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

type AdminUserHandler struct {
    Users    UserStatusStore
    Sessions SessionRevoker
    Log      *zap.Logger
}

func NewAdminUserHandler(users UserStatusStore, sessions SessionRevoker, log *zap.Logger) *AdminUserHandler {
    return &AdminUserHandler{Users: users, Sessions: sessions, Log: nopIfNil(log)}
}

type userStatusReq struct {
    IsActive *bool `json:"is_active"`
}

// UpdateStatus handles PUT /v1/admin/users/:id/status.  Deactivating a
// user also revokes their refresh tokens; access tokens already issued
// stay valid until they expire.
func (h *AdminUserHandler) UpdateStatus(c echo.Context) error {
    caller, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    userID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req userStatusReq
    if err := c.Bind(&req); err != nil || req.IsActive == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active required"})
    }
    if userID == caller.UserID && !*req.IsActive {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate your own account"})
    }

    ctx := c.Request().Context()
    u, err := h.Users.SetActive(ctx, userID, *req.IsActive)
    if errors.Is(err, repository.ErrUserNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    }
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if !u.IsActive {
        if err := h.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
            return writeError(c, h.Log, err)
        }
    }
    h.Log.Info("user status changed",
        zap.Uint64("user_id", u.ID), zap.Bool("is_active", u.IsActive), zap.Uint64("by", caller.UserID))
    return c.JSON(http.StatusOK, echo.Map{
        "id":        u.ID,
        "email":     u.Email,
        "full_name": u.FullName,
        "role":      u.Role,
        "is_active": u.IsActive,
    })
}
