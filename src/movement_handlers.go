package main

import (
	"cbs/src/config"
	"cbs/src/db"
	"cbs/src/middlewares"
	"cbs/src/models"
	"cbs/src/types"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type categoryBreakdown struct {
	CategoryID   uint    `json:"categoriaId"`
	CategoryName string  `json:"categoriaNombre"`
	Kind         string  `json:"tipo"`
	Total        float64 `json:"total"`
}

func movementHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.Use(middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER))
	g.
		GET("/movimientos", func(ctx *gin.Context) {
			var filters types.MovementQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.
				Model(&models.CashMovement{}).
				Where(&models.CashMovement{VenueID: filters.VenueID}).
				Preload("Category")
			if filters.Kind != "" {
				q = q.Where("kind = ?", filters.Kind)
			}
			if filters.Category > 0 {
				q = q.Where("category_id = ?", filters.Category)
			}
			if filters.From != "" {
				q = q.Where("occurred_at >= ?::date", filters.From)
			}
			if filters.To != "" {
				q = q.Where("occurred_at < ?::date + interval '1 day'", filters.To)
			}
			movements := make([]models.CashMovement, 0)
			if err := q.Order("occurred_at desc").Limit(500).Find(&movements).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": movements, "count": len(movements)})
		}).
		GET("/movimientos/categorias", func(ctx *gin.Context) {
			db := db.GetDb()
			categories := make([]models.Category, 0)
			if err := db.
				Model(&models.Category{}).
				Where("active = ?", true).
				Order("name asc").
				Find(&categories).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": categories, "count": len(categories)})
		}).
		POST("/movimientos/categorias", func(ctx *gin.Context) {
			var body types.CreateCategoryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			category := models.Category{
				Name:        body.Name,
				Kind:        body.Kind,
				Description: body.Description,
				Active:      true,
			}
			db := db.GetDb()
			if err := db.Create(&category).Error; err != nil {
				log.Printf("Error creating category: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": category.ID, "data": category})
		}).
		PUT("/movimientos/categorias/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateCategoryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Name != "" {
				updates["name"] = body.Name
			}
			if body.Description != "" {
				updates["description"] = body.Description
			}
			if body.Active != nil {
				updates["active"] = *body.Active
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			db := db.GetDb()
			if err := db.
				Model(&models.Category{}).
				Where("id = ?", params.ID).
				Updates(updates).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/movimientos/categorias/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			// Movements keep their category reference, so a delete only
			// deactivates the category and hides it from the picker.
			db := db.GetDb()
			if err := db.
				Model(&models.Category{}).
				Where("id = ?", params.ID).
				Update("active", false).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/movimientos/stats", func(ctx *gin.Context) {
			var filters types.MovementQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var totalIncome, totalExpense float64
			if err := db.
				Model(&models.CashMovement{}).
				Where(&models.CashMovement{VenueID: filters.VenueID}).
				Where("kind = ?", types.MOVEMENT_INCOME).
				Select("COALESCE(SUM(amount), 0)").
				Scan(&totalIncome).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if err := db.
				Model(&models.CashMovement{}).
				Where(&models.CashMovement{VenueID: filters.VenueID}).
				Where("kind = ?", types.MOVEMENT_EXPENSE).
				Select("COALESCE(SUM(amount), 0)").
				Scan(&totalExpense).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			byCategory := make([]categoryBreakdown, 0)
			if err := db.
				Model(&models.CashMovement{}).
				Select("cash_movements.category_id AS category_id, categories.name AS category_name, cash_movements.kind AS kind, SUM(cash_movements.amount) AS total").
				Joins("JOIN categories ON categories.id = cash_movements.category_id").
				Where("cash_movements.venue_id = ?", filters.VenueID).
				Group("cash_movements.category_id, categories.name, cash_movements.kind").
				Scan(&byCategory).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
				"totalIngresos": totalIncome,
				"totalEgresos":  totalExpense,
				"balance":       totalIncome - totalExpense,
				"porCategoria":  byCategory,
			}})
		}).
		POST("/movimientos", func(ctx *gin.Context) {
			var body types.CreateMovementRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			occurredAt := time.Now()
			if body.OccurredAt != "" {
				parsed, err := time.Parse(config.TIME_PARSE_FORMAT, body.OccurredAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				occurredAt = parsed
			}
			db := db.GetDb()
			var category models.Category
			if err := db.Where(&models.Category{ID: body.CategoryID}).First(&category).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "categoria not found"})
				return
			}
			if category.Kind != body.Kind {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "categoria does not match tipo"})
				return
			}
			movement := models.CashMovement{
				VenueID:    body.VenueID,
				CategoryID: body.CategoryID,
				Concept:    body.Concept,
				Amount:     body.Amount,
				Kind:       body.Kind,
				Method:     body.Method,
				OccurredAt: occurredAt,
				Metadata:   body.Metadata,
			}
			if err := db.Create(&movement).Error; err != nil {
				log.Printf("Error creating movement: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": movement.ID, "data": movement})
		}).
		PUT("/movimientos/:id", func(ctx *gin.Context) {
			idParam := ctx.Params.ByName("id")
			movementId, err := uuid.Parse(idParam)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateMovementRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.CategoryID > 0 {
				updates["category_id"] = body.CategoryID
			}
			if body.Concept != "" {
				updates["concept"] = body.Concept
			}
			if body.Amount != nil {
				updates["amount"] = *body.Amount
			}
			if body.Method != "" {
				updates["method"] = body.Method
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			db := db.GetDb()
			if err := db.
				Model(&models.CashMovement{}).
				Where("id = ?", movementId).
				Updates(updates).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/movimientos/:id", func(ctx *gin.Context) {
			idParam := ctx.Params.ByName("id")
			movementId, err := uuid.Parse(idParam)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			if err := db.Where("id = ?", movementId).Delete(&models.CashMovement{}).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
