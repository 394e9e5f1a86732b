package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/middleware"
	"github.com/uptimer-dev/uptimer/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, errors.New("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, errors.New("Invalid user type in context")
	}

	return authenticatedUser, nil
}
