package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tipdrop/tipdrop-api/internal/api/middleware"
)

func getUserID(ctx *gin.Context) uint {
	return ctx.GetUint(middleware.ContextKeyUserID)
}

func parseUintParam(ctx *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(v), nil
}
