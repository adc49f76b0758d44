package main

import (
	"cbs/src/db"
	"cbs/src/middlewares"
	"cbs/src/models"
	"cbs/src/models/scopes"
	"cbs/src/types"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// courtForWrite loads the court and enforces that the caller owns its venue,
// unless the caller is an admin.
func courtForWrite(tx *gorm.DB, ctx *gin.Context, courtID uint) (*models.Court, error) {
	var court models.Court
	if err := tx.Where(&models.Court{ID: courtID}).First(&court).Error; err != nil {
		return nil, err
	}
	var venue models.Venue
	if err := tx.Where(&models.Venue{ID: court.VenueID}).First(&venue).Error; err != nil {
		return nil, err
	}
	if types.Role(ctx.GetString("role")) != types.ROLE_ADMIN && venue.OwnerID != ctx.GetUint("id") {
		return nil, errNotOwner
	}
	return &court, nil
}

func courtHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/canchas", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Court{})
			if v, ok := ctx.GetQuery("predio"); ok && v != "" {
				if id, err := strconv.ParseUint(v, 10, 32); err == nil {
					q = q.Scopes(scopes.WithVenue(uint(id)))
				}
			}
			courts := make([]models.Court, 0)
			if err := q.Order("name asc").Find(&courts).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": courts, "count": len(courts)})
		}).
		GET("/canchas/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var court models.Court
			db := db.GetDb()
			if err := db.
				Scopes(scopes.WithID(params.ID)).
				Preload("Venue").
				First(&court).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "cancha not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": court})
		}).
		POST("/canchas", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var body types.CreateCourtRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var venue models.Venue
			db := db.GetDb()
			if err := db.Where(&models.Venue{ID: body.VenueID}).First(&venue).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "predio not found"})
				return
			}
			if types.Role(ctx.GetString("role")) != types.ROLE_ADMIN && venue.OwnerID != ctx.GetUint("id") {
				ctx.JSON(http.StatusForbidden, gin.H{"error": errNotOwner.Error()})
				return
			}
			court := models.Court{
				Name:            body.Name,
				VenueID:         body.VenueID,
				Type:            body.Type,
				Size:            body.Size,
				Price:           body.Price,
				SlotMinutes:     body.SlotMinutes,
				RequiresDeposit: body.RequiresDeposit,
			}
			if court.SlotMinutes == 0 {
				court.SlotMinutes = 30
			}
			if err := db.Create(&court).Error; err != nil {
				log.Printf("Error creating court: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": court.ID})
		}).
		PUT("/canchas/:id", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateCourtRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Name != "" {
				updates["name"] = body.Name
			}
			if body.Type != "" {
				updates["type"] = body.Type
			}
			if body.Size != "" {
				updates["size"] = body.Size
			}
			if body.Price != nil {
				updates["price"] = *body.Price
			}
			if body.SlotMinutes != nil {
				updates["slot_minutes"] = *body.SlotMinutes
			}
			if body.RequiresDeposit != nil {
				updates["requires_deposit"] = *body.RequiresDeposit
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := courtForWrite(tx, ctx, params.ID); err != nil {
					return err
				}
				return tx.
					Model(&models.Court{}).
					Scopes(scopes.WithID(params.ID)).
					Updates(updates).
					Error
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
		DELETE("/canchas/:id", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := courtForWrite(tx, ctx, params.ID); err != nil {
					return err
				}
				return tx.Delete(&models.Court{}, params.ID).Error
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
		})
	return g
}
