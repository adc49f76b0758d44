package main

import (
	"cbs/src/db"
	"cbs/src/middlewares"
	"cbs/src/models"
	"cbs/src/types"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func userHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/usuarios", middlewares.RequireRole(types.ROLE_ADMIN), func(ctx *gin.Context) {
			db := db.GetDb()
			users := make([]models.User, 0)
			if err := db.
				Model(&models.User{}).
				Select("id", "name", "email", "role", "last_active", "created_at").
				Order("created_at desc").
				Find(&users).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
		}).
		GET("/usuarios/me", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var user models.User
			db := db.GetDb()
			if err := db.
				Select("id", "name", "email", "role", "last_active", "created_at").
				Where(&models.User{ID: userId}).
				First(&user).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		PUT("/usuarios/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			role := types.Role(ctx.GetString("role"))
			if params.ID != ctx.GetUint("id") && role != types.ROLE_ADMIN {
				ctx.Status(http.StatusForbidden)
				return
			}
			var body types.UpdateUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Name != "" {
				updates["name"] = body.Name
			}
			if body.Email != "" {
				updates["email"] = body.Email
			}
			if body.Password != "" {
				hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
				if err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				updates["password_hash"] = string(hash)
			}
			if body.Role != "" {
				// Only admins may change roles.
				if role != types.ROLE_ADMIN {
					ctx.Status(http.StatusForbidden)
					return
				}
				updates["role"] = body.Role
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var user models.User
				if err := tx.Where(&models.User{ID: params.ID}).First(&user).Error; err != nil {
					return err
				}
				return tx.Model(&models.User{}).Where(&models.User{ID: params.ID}).Updates(updates).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
					return
				}
				log.Printf("Error updating user [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/usuarios/:id", middlewares.RequireRole(types.ROLE_ADMIN), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			if err := db.Delete(&models.User{}, params.ID).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
