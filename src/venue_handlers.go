package main

import (
	"cbs/src/db"
	"cbs/src/middlewares"
	"cbs/src/models"
	"cbs/src/types"
	"cbs/src/utils"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errNotOwner = errors.New("predio belongs to another owner")

func venueHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/predios", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			role := types.Role(ctx.GetString("role"))
			db := db.GetDb()
			q := db.Model(&models.Venue{}).Preload("Courts")
			if role != types.ROLE_ADMIN {
				q = q.Where(&models.Venue{OwnerID: userId})
			}
			venues := make([]models.Venue, 0)
			if err := q.Order("created_at desc").Find(&venues).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": venues, "count": len(venues)})
		}).
		GET("/predios/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var venue models.Venue
			db := db.GetDb()
			if err := db.
				Where(&models.Venue{ID: params.ID}).
				Preload("Courts").
				First(&venue).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "predio not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": venue})
		}).
		POST("/predios", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var body types.CreateVenueRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			venue := models.Venue{
				Name:      body.Name,
				Slug:      utils.VenueSlug(body.Name),
				Address:   body.Address,
				OwnerID:   ctx.GetUint("id"),
				OpenTime:  body.OpenTime,
				CloseTime: body.CloseTime,
			}
			db := db.GetDb()
			if err := db.Create(&venue).Error; err != nil {
				log.Printf("Error creating venue: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": venue.ID})
		}).
		PUT("/predios/:id", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateVenueRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Name != "" {
				updates["name"] = body.Name
				updates["slug"] = utils.VenueSlug(body.Name)
			}
			if body.Address != "" {
				updates["address"] = body.Address
			}
			if body.OpenTime != "" {
				updates["open_time"] = body.OpenTime
			}
			if body.CloseTime != "" {
				updates["close_time"] = body.CloseTime
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			role := types.Role(ctx.GetString("role"))
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var venue models.Venue
				if err := tx.Where(&models.Venue{ID: params.ID}).First(&venue).Error; err != nil {
					return err
				}
				// Owners may only touch their own predios; the operating
				// window feeds every availability decision for its courts.
				if role != types.ROLE_ADMIN && venue.OwnerID != userId {
					return errNotOwner
				}
				return tx.Model(&models.Venue{}).Where(&models.Venue{ID: params.ID}).Updates(updates).Error
			})
			if err != nil {
				if errors.Is(err, errNotOwner) {
					ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/predios/:id", middlewares.RequireRole(types.ROLE_ADMIN), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			if err := db.Delete(&models.Venue{}, params.ID).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
