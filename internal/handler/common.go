package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/access"
    "github.com/bookstore/bookstore-api/internal/middleware"
    "github.com/bookstore/bookstore-api/internal/repository"
    "github.com/bookstore/bookstore-api/internal/service"
)

// currentIdentity returns the caller stored by the JWT middleware or
// access.ErrUnauthenticated for anonymous requests.
func currentIdentity(c echo.Context) (access.Identity, error) {
    id, ok := middleware.IdentityFrom(c)
    if !ok {
        return access.Identity{}, access.ErrUnauthenticated
    }
    return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// pageParams reads page and page_size query parameters, clamping them the
// same way the repositories do.
func pageParams(c echo.Context, defaultSize int) (int, int) {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    if page > repository.MaxPage {
        page = repository.MaxPage
    }
    ps, _ := strconv.Atoi(c.QueryParam("page_size"))
    if ps < 1 || ps > 100 {
        ps = defaultSize
    }
    return page, ps
}

func nopIfNil(l *zap.Logger) *zap.Logger {
    if l == nil {
        return zap.NewNop()
    }
    return l
}

// writeError maps domain and service errors onto HTTP responses.  Errors
// it does not recognise are logged and reported as a generic 500 so that
// SQL details never reach the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    var stockErr *repository.InsufficientStockError
    var bookErr *repository.BookNotFoundError
    switch {
    case errors.As(err, &stockErr):
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":     stockErr.Error(),
            "book_id":   stockErr.BookID,
            "available": stockErr.Available,
        })
    case errors.As(err, &bookErr):
        return c.JSON(http.StatusNotFound, echo.Map{
            "error":   bookErr.Error(),
            "book_id": bookErr.BookID,
        })
    case errors.Is(err, service.ErrInvalidAddress),
        errors.Is(err, service.ErrEmptyCart),
        errors.Is(err, repository.ErrInvalidQuantity),
        errors.Is(err, repository.ErrInvalidStatus):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, access.ErrUnauthenticated):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    case errors.Is(err, service.ErrCheckoutNotAllowed),
        errors.Is(err, access.ErrNotAllowed),
        errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrOrderNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
    case errors.Is(err, repository.ErrCartLineNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "cart item not found"})
    }
    nopIfNil(log).Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
