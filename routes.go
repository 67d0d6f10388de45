package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/retrove/consign_backend/utils"
	"github.com/retrove/consign_backend/workflow"
	"github.com/shopspring/decimal"
)

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler)
	r.POST("/auth/logout", logoutHandler)

	r.POST("/suppliers", createSupplierHandler)
	r.GET("/suppliers", listSuppliersHandler)
	r.GET("/suppliers/:id", getSupplierHandler)
	r.PUT("/suppliers/:id", updateSupplierHandler)
	r.DELETE("/suppliers/:id", deleteSupplierHandler)
	r.GET("/suppliers/:id/store-credit", supplierStoreCreditHandler)
	r.GET("/suppliers/:id/cash-balance", supplierCashBalanceHandler)
	r.POST("/suppliers/:id/cash-redemptions", redeemCashHandler)

	r.POST("/registers", createRegisterHandler)
	r.GET("/registers", listRegistersHandler)
	r.POST("/registers/:id/open", openRegisterHandler)
	r.POST("/registers/:id/close", closeRegisterHandler)

	r.POST("/receptions", createReceptionHandler)
	r.GET("/receptions/:id", getReceptionHandler)
	r.POST("/receptions/:id/complete", completeReceptionHandler)

	r.POST("/items", createItemHandler)
	r.GET("/items/:id", getItemHandler)
	r.POST("/items/:id/evaluate", evaluateItemHandler)
	r.POST("/items/:id/return", returnItemHandler)
	r.DELETE("/items/:id", deleteItemHandler)

	r.POST("/sales", processSaleHandler)

	r.GET("/store-credits/:id", getStoreCreditHandler)
	r.POST("/store-credits/:id/adjust", adjustStoreCreditHandler)
	r.POST("/store-credits/:id/cancel", cancelStoreCreditHandler)

	r.POST("/settlements/calculate", calculateSettlementHandler)
	r.POST("/settlements", createSettlementHandler)
	r.GET("/settlements/:id", getSettlementHandler)
	r.POST("/settlements/:id/pay", paySettlementHandler)
	r.POST("/settlements/:id/cancel", cancelSettlementHandler)
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func requireOperator(c *gin.Context) (int, bool) {
	operatorId, ok := utils.GetOperatorIdFromContext(c.Request.Context())
	if !ok || operatorId == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return operatorId, true
}

func requireAdmin(c *gin.Context) bool {
	if _, ok := requireOperator(c); !ok {
		return false
	}
	isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
	if !isAdmin {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses: missing records are
// 404, business-rule conflicts are 409, everything else is 400.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest

	var itemsNotFound *models.ItemsNotFoundError
	var notSellable *models.ItemNotSellableError
	var insufficientCredit *models.InsufficientStoreCreditError
	var insufficientCash *models.InsufficientCashBalanceError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		status = http.StatusNotFound
	case errors.As(err, &itemsNotFound):
		status = http.StatusNotFound
	case errors.As(err, &notSellable),
		errors.As(err, &insufficientCredit),
		errors.As(err, &insufficientCash),
		errors.Is(err, models.ErrRegisterNotOpen),
		errors.Is(err, models.ErrRegisterOwnershipMismatch),
		errors.Is(err, models.ErrNoItemsToSettle),
		errors.Is(err, models.ErrSettlementAlreadyPaid),
		errors.Is(err, models.ErrSettlementAlreadyCancelled),
		errors.Is(err, models.ErrCannotCancelPaidSettlement),
		errors.Is(err, models.ErrInstrumentNotActive):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := models.VerifyUserPassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token := uuid.NewString()
	if err := config.SetRedisValue("Token:"+token, strconv.Itoa(user.ID), 24*time.Hour); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": user.Name, "is_admin": user.IsAdmin})
}

func logoutHandler(c *gin.Context) {
	token, ok := utils.GetTokenFromContext(c.Request.Context())
	if !ok || token == "" {
		c.Status(http.StatusNoContent)
		return
	}
	operatorId, _ := utils.GetOperatorIdFromContext(c.Request.Context())
	config.RemoveRedisKey("Token:"+token, "User:"+strconv.Itoa(operatorId))
	c.Status(http.StatusNoContent)
}

func createSupplierHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input models.NewSupplier
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	supplier, err := models.CreateSupplier(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func listSuppliersHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	suppliers, err := models.GetSuppliers(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func getSupplierHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	supplier, err := models.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func updateSupplierHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewSupplier
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func deleteSupplierHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	supplier, err := models.DeleteSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func supplierStoreCreditHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	available, err := models.AvailableStoreCredit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier_id": id, "available": utils.RoundMoney(available)})
}

func supplierCashBalanceHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	balance, err := models.CashBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier_id": id, "balance": utils.RoundMoney(balance)})
}

type redeemCashRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Notes  string          `json:"notes"`
}

func redeemCashHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req redeemCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	operatorName, _ := utils.GetOperatorNameFromContext(c.Request.Context())
	entry, err := models.RedeemCash(c.Request.Context(), id, req.Amount, req.Notes, operatorName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type newRegisterRequest struct {
	Name string `json:"name" binding:"required"`
}

func createRegisterHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req newRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	register, err := models.CreateRegister(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, register)
}

func listRegistersHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	registers, err := utils.FetchAllModels[models.Register](c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, registers)
}

func openRegisterHandler(c *gin.Context) {
	operatorId, ok := requireOperator(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	register, err := models.OpenRegister(c.Request.Context(), id, operatorId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, register)
}

func closeRegisterHandler(c *gin.Context) {
	operatorId, ok := requireOperator(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	register, err := models.CloseRegister(c.Request.Context(), id, operatorId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, register)
}

func createReceptionHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input models.NewReception
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	reception, err := models.CreateReception(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reception)
}

func getReceptionHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	reception, err := models.GetReception(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reception)
}

func completeReceptionHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	reception, err := models.CompleteReception(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reception)
}

func createItemHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input models.NewItem
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	item, err := models.CreateItem(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func getItemHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	item, err := models.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func evaluateItemHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.ItemEvaluation
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	item, err := models.EvaluateItem(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func returnItemHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	item, err := models.ReturnItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func deleteItemHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	item, err := models.DeleteItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func processSaleHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input models.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sale, err := workflow.ProcessSale(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func getStoreCreditHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	credit, err := models.GetStoreCredit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

type creditAdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Notes  string          `json:"notes" binding:"required"`
}

func adjustStoreCreditHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req creditAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	credit, err := models.AdjustStoreCredit(c.Request.Context(), id, req.Amount, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

type creditCancellationRequest struct {
	Notes string `json:"notes" binding:"required"`
}

func cancelStoreCreditHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req creditCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	credit, err := models.CancelStoreCredit(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

func calculateSettlementHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input workflow.NewSettlement
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	split, err := workflow.CalculateSettlement(c.Request.Context(), input.SupplierId, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, split)
}

func createSettlementHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	var input workflow.NewSettlement
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	settlement, err := workflow.CreateSettlement(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, settlement)
}

func getSettlementHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	settlement, err := utils.FetchModel[models.Settlement](c.Request.Context(), id, "SaleItems")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func paySettlementHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	settlement, err := workflow.PaySettlement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func cancelSettlementHandler(c *gin.Context) {
	if _, ok := requireOperator(c); !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	settlement, err := workflow.CancelSettlement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}
