package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nusakarya/projectledger/internal/http/middleware"
	"github.com/nusakarya/projectledger/internal/model"
	"github.com/nusakarya/projectledger/internal/service"
)

type Handler struct {
	projects     *service.ProjectService
	certificates *service.CertificateService
	payments     *service.PaymentService
	budget       *service.BudgetService
	milestones   *service.MilestoneService
	procurement  *service.ProcurementService
	log          zerolog.Logger
}

func NewHandler(
	projects *service.ProjectService,
	certificates *service.CertificateService,
	payments *service.PaymentService,
	budget *service.BudgetService,
	milestones *service.MilestoneService,
	procurement *service.ProcurementService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		projects:     projects,
		certificates: certificates,
		payments:     payments,
		budget:       budget,
		milestones:   milestones,
		procurement:  procurement,
		log:          log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := router.Group("/api")
	api.Use(authMiddleware)

	manage := middleware.RequireRoles(model.RoleProjectManager)
	site := middleware.RequireRoles(model.RoleProjectManager, model.RoleSiteManager)
	finance := middleware.RequireRoles(model.RoleProjectManager, model.RoleFinance)

	api.POST("/projects", manage, h.createProject)
	api.GET("/projects/:projectId", h.getProject)
	// Cascade deletion is admin only.
	api.DELETE("/projects/:projectId", middleware.RequireRoles(), h.deleteProject)

	project := api.Group("/projects/:projectId")

	project.POST("/certificates", site, h.createCertificate)
	project.GET("/certificates", h.listCertificates)
	project.GET("/certificates/:id", h.getCertificate)
	project.POST("/certificates/:id/submit", site, h.submitCertificate)
	project.POST("/certificates/:id/review", manage, h.reviewCertificate)
	project.POST("/certificates/:id/approve", manage, h.approveCertificate)
	project.POST("/certificates/:id/reject", manage, h.rejectCertificate)
	project.POST("/certificates/:id/sign", middleware.RequireRoles(model.RoleClient), h.signCertificate)
	project.GET("/certificates/:id/document", h.downloadCertificateDocument)
	project.DELETE("/certificates/:id", manage, h.deleteCertificate)

	project.POST("/payments", finance, h.createPayment)
	project.GET("/payments", h.listPayments)
	project.GET("/payments/summary", h.paymentSummary)
	project.GET("/payments/:id", h.getPayment)
	project.PATCH("/payments/:id/status", finance, h.updatePaymentStatus)
	project.POST("/payments/:id/invoice/send", finance, h.markInvoiceSent)
	project.POST("/payments/:id/confirm", finance, h.confirmPayment)
	project.GET("/payments/:id/invoice", h.downloadInvoice)
	project.DELETE("/payments/:id", finance, h.deletePayment)

	project.GET("/budget/monitoring", h.budgetMonitoring)
	project.GET("/budget/export", h.budgetExport)

	project.POST("/milestones/:id/sync-progress", h.syncMilestoneProgress)

	project.POST("/rab", site, h.createBudgetLine)
	project.GET("/rab", h.listBudgetLines)
	project.PUT("/rab/:id", site, h.updateBudgetLine)
	project.POST("/rab/:id/review", manage, h.reviewBudgetLine)
	project.DELETE("/rab/:id", manage, h.deleteBudgetLine)

	project.POST("/purchase-orders", site, h.createPurchaseOrder)
	project.GET("/purchase-orders/:id", h.getPurchaseOrder)
	project.PATCH("/purchase-orders/:id/status", site, h.updatePOStatus)

	project.POST("/delivery-receipts", site, h.createReceipt)
	project.GET("/delivery-receipts/:id", h.getReceipt)
	project.POST("/delivery-receipts/:id/inspect", site, h.inspectReceipt)
	project.POST("/delivery-receipts/:id/receive", site, h.receiveReceipt)
	project.POST("/delivery-receipts/:id/complete", site, h.completeReceipt)
	project.DELETE("/delivery-receipts/:id", manage, h.deleteReceipt)
}

type createProjectRequest struct {
	Name           string  `json:"name" binding:"required"`
	ClientName     string  `json:"clientName"`
	Location       string  `json:"location"`
	SubsidiaryCode string  `json:"subsidiaryCode" binding:"required"`
	Budget         float64 `json:"budget"`
	StartDate      *string `json:"startDate"`
	EndDate        *string `json:"endDate"`
}

func (h *Handler) createProject(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
		return
	}

	project, err := h.projects.Create(c.Request.Context(), service.CreateProjectInput{
		Name:           req.Name,
		ClientName:     req.ClientName,
		Location:       req.Location,
		SubsidiaryCode: req.SubsidiaryCode,
		Budget:         req.Budget,
		StartDate:      startDate,
		EndDate:        endDate,
		Principal:      principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectResponse(*project))
}

func (h *Handler) getProject(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(*project))
}

func (h *Handler) deleteProject(c *gin.Context) {
	counts, err := h.projects.Delete(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "project and all related records deleted",
		"deleted": counts,
	})
}

type createCertificateRequest struct {
	MilestoneID          *string `json:"milestoneId"`
	Type                 string  `json:"type"`
	WorkDescription      string  `json:"workDescription" binding:"required"`
	CompletionPercentage float64 `json:"completionPercentage"`
	CompletionDate       string  `json:"completionDate" binding:"required"`
	PeriodNumbering      bool    `json:"periodNumbering"`
}

func (h *Handler) createCertificate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completionDate, err := parseDate(req.CompletionDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid completionDate"})
		return
	}

	var milestoneID *uuid.UUID
	if req.MilestoneID != nil && *req.MilestoneID != "" {
		parsed, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestoneId"})
			return
		}
		milestoneID = &parsed
	}

	cert, err := h.certificates.Create(c.Request.Context(), c.Param("projectId"), service.CreateCertificateInput{
		MilestoneID:          milestoneID,
		Type:                 model.CertificateType(req.Type),
		WorkDescription:      req.WorkDescription,
		CompletionPercentage: req.CompletionPercentage,
		CompletionDate:       completionDate,
		PeriodNumbering:      req.PeriodNumbering,
		Principal:            principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCertificateResponse(*cert))
}

func (h *Handler) listCertificates(c *gin.Context) {
	certs, err := h.certificates.List(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	responses := make([]certificateResponse, 0, len(certs))
	for _, cert := range certs {
		responses = append(responses, toCertificateResponse(cert))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *Handler) getCertificate(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	cert, err := h.certificates.Get(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCertificateResponse(*cert))
}

func (h *Handler) submitCertificate(c *gin.Context) {
	h.certificateTransition(c, func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
		return h.certificates.Submit(c.Request.Context(), projectID, id, principal)
	})
}

func (h *Handler) reviewCertificate(c *gin.Context) {
	h.certificateTransition(c, func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
		return h.certificates.MarkForReview(c.Request.Context(), projectID, id, principal)
	})
}

type approveCertificateRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) approveCertificate(c *gin.Context) {
	var req approveCertificateRequest
	_ = c.ShouldBindJSON(&req)
	h.certificateTransition(c, func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
		return h.certificates.Approve(c.Request.Context(), projectID, id, principal, req.Notes)
	})
}

type rejectCertificateRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectCertificate(c *gin.Context) {
	var req rejectCertificateRequest
	_ = c.ShouldBindJSON(&req)
	h.certificateTransition(c, func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
		return h.certificates.Reject(c.Request.Context(), projectID, id, principal, req.Reason)
	})
}

type signCertificateRequest struct {
	Signature      string `json:"signature" binding:"required"`
	Representative string `json:"representative" binding:"required"`
}

func (h *Handler) signCertificate(c *gin.Context) {
	var req signCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.certificateTransition(c, func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error) {
		return h.certificates.ClientSign(c.Request.Context(), projectID, id, req.Signature, req.Representative, principal)
	})
}

func (h *Handler) certificateTransition(
	c *gin.Context,
	apply func(projectID string, id uuid.UUID, principal model.Principal) (*model.CompletionCertificate, error),
) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	cert, err := apply(c.Param("projectId"), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCertificateResponse(*cert))
}

func (h *Handler) downloadCertificateDocument(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	result, err := h.certificates.GenerateDocument(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) deleteCertificate(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	if err := h.certificates.Delete(c.Request.Context(), c.Param("projectId"), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "certificate deleted"})
}

type createPaymentRequest struct {
	CertificateID   string   `json:"certificateId" binding:"required"`
	Amount          float64  `json:"amount"`
	Percentage      float64  `json:"percentage"`
	TaxAmount       *float64 `json:"taxAmount"`
	RetentionAmount *float64 `json:"retentionAmount"`
	DueDate         *string  `json:"dueDate"`
	Notes           string   `json:"notes"`
}

func (h *Handler) createPayment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	certID, err := uuid.Parse(req.CertificateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificateId"})
		return
	}

	var dueDate time.Time
	if parsed, perr := parseOptionalDate(req.DueDate); perr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dueDate"})
		return
	} else if parsed != nil {
		dueDate = *parsed
	}

	payment, err := h.payments.Create(c.Request.Context(), c.Param("projectId"), service.CreatePaymentInput{
		CertificateID:   certID,
		Amount:          req.Amount,
		Percentage:      req.Percentage,
		TaxAmount:       req.TaxAmount,
		RetentionAmount: req.RetentionAmount,
		DueDate:         dueDate,
		Notes:           req.Notes,
		Principal:       principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(*payment, time.Now()))
}

func (h *Handler) listPayments(c *gin.Context) {
	payments, err := h.payments.List(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	now := time.Now()
	responses := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, toPaymentResponse(payment, now))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *Handler) getPayment(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Get(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(*payment, time.Now()))
}

func (h *Handler) paymentSummary(c *gin.Context) {
	summary, err := h.payments.Summary(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type updatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.payments.UpdateStatus(c.Request.Context(), c.Param("projectId"), id, req.Status, req.Reason, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(*payment, time.Now()))
}

type markInvoiceSentRequest struct {
	RecipientName  string `json:"recipientName" binding:"required"`
	SentDate       string `json:"sentDate" binding:"required"`
	DeliveryMethod string `json:"deliveryMethod" binding:"required"`
	CourierService string `json:"courierService"`
	Evidence       string `json:"evidence"`
}

func (h *Handler) markInvoiceSent(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req markInvoiceSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sentDate, err := parseDate(req.SentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sentDate"})
		return
	}
	evidence, err := decodeEvidence(req.Evidence)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence encoding"})
		return
	}

	payment, err := h.payments.MarkInvoiceSent(c.Request.Context(), c.Param("projectId"), id, service.MarkInvoiceSentInput{
		RecipientName:  req.RecipientName,
		SentDate:       sentDate,
		DeliveryMethod: req.DeliveryMethod,
		CourierService: req.CourierService,
		Evidence:       evidence,
		Principal:      principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(*payment, time.Now()))
}

type confirmPaymentRequest struct {
	PaidAmount       float64 `json:"paidAmount"`
	PaidDate         string  `json:"paidDate" binding:"required"`
	BankAccount      string  `json:"bankAccount"`
	PaymentReference string  `json:"paymentReference"`
	Evidence         string  `json:"evidence"`
}

func (h *Handler) confirmPayment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paidDate, err := parseDate(req.PaidDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paidDate"})
		return
	}
	evidence, err := decodeEvidence(req.Evidence)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence encoding"})
		return
	}

	payment, err := h.payments.ConfirmPayment(c.Request.Context(), c.Param("projectId"), id, service.ConfirmPaymentInput{
		PaidAmount:       req.PaidAmount,
		PaidDate:         paidDate,
		BankAccount:      req.BankAccount,
		PaymentReference: req.PaymentReference,
		Evidence:         evidence,
		Principal:        principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(*payment, time.Now()))
}

func (h *Handler) downloadInvoice(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	result, err := h.payments.GenerateInvoice(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) deletePayment(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	if err := h.payments.Delete(c.Request.Context(), c.Param("projectId"), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment deleted"})
}

func (h *Handler) budgetMonitoring(c *gin.Context) {
	result, err := h.budget.Monitor(c.Request.Context(), c.Param("projectId"), c.Query("timeframe"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) budgetExport(c *gin.Context) {
	result, err := h.budget.Export(c.Request.Context(), c.Param("projectId"), c.Query("timeframe"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) syncMilestoneProgress(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	milestone, err := h.milestones.SyncProgress(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMilestoneResponse(*milestone))
}

type budgetLineRequest struct {
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

func (h *Handler) createBudgetLine(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req budgetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.procurement.CreateBudgetLine(c.Request.Context(), c.Param("projectId"), service.CreateBudgetLineInput{
		Category:    req.Category,
		Description: req.Description,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRABItemResponse(*item))
}

func (h *Handler) listBudgetLines(c *gin.Context) {
	items, err := h.procurement.ListBudgetLines(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	responses := make([]rabItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toRABItemResponse(item))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *Handler) updateBudgetLine(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req budgetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.procurement.UpdateBudgetLine(c.Request.Context(), c.Param("projectId"), id, service.CreateBudgetLineInput{
		Category:    req.Category,
		Description: req.Description,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRABItemResponse(*item))
}

type reviewBudgetLineRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *Handler) reviewBudgetLine(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req reviewBudgetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.procurement.ReviewBudgetLine(c.Request.Context(), c.Param("projectId"), id, req.Approve, req.Reason, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRABItemResponse(*item))
}

func (h *Handler) deleteBudgetLine(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	if err := h.procurement.DeleteBudgetLine(c.Request.Context(), c.Param("projectId"), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "budget line deleted"})
}

type createPORequest struct {
	SupplierName string `json:"supplierName" binding:"required"`
	Items        []struct {
		RABItemID string  `json:"rabItemId" binding:"required"`
		ItemName  string  `json:"itemName"`
		Quantity  float64 `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
	} `json:"items" binding:"required"`
}

func (h *Handler) createPurchaseOrder(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]model.POItem, 0, len(req.Items))
	for _, line := range req.Items {
		rabItemID, err := uuid.Parse(line.RABItemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rabItemId"})
			return
		}
		items = append(items, model.POItem{
			RABItemID: rabItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	po, err := h.procurement.CreatePurchaseOrder(c.Request.Context(), c.Param("projectId"), service.CreatePOInput{
		SupplierName: req.SupplierName,
		Items:        items,
		Principal:    principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPurchaseOrderResponse(*po))
}

func (h *Handler) getPurchaseOrder(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	po, err := h.procurement.GetPurchaseOrder(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseOrderResponse(*po))
}

type updatePOStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updatePOStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req updatePOStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.procurement.UpdatePOStatus(c.Request.Context(), c.Param("projectId"), id, model.POStatus(req.Status), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseOrderResponse(*po))
}

type createReceiptRequest struct {
	PurchaseOrderID string              `json:"purchaseOrderId" binding:"required"`
	Items           []model.ReceiptItem `json:"items" binding:"required"`
	ReceivedDate    *string             `json:"receivedDate"`
	Evidence        string              `json:"evidence"`
	Notes           string              `json:"notes"`
}

func (h *Handler) createReceipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poID, err := uuid.Parse(req.PurchaseOrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchaseOrderId"})
		return
	}
	receivedDate, err := parseOptionalDate(req.ReceivedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receivedDate"})
		return
	}
	evidence, err := decodeEvidence(req.Evidence)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence encoding"})
		return
	}

	receipt, err := h.procurement.CreateDeliveryReceipt(c.Request.Context(), c.Param("projectId"), service.CreateReceiptInput{
		PurchaseOrderID: poID,
		Items:           req.Items,
		ReceivedDate:    receivedDate,
		Evidence:        evidence,
		Notes:           req.Notes,
		Principal:       principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReceiptResponse(*receipt))
}

func (h *Handler) getReceipt(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	receipt, err := h.procurement.GetReceipt(c.Request.Context(), c.Param("projectId"), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(*receipt))
}

type inspectReceiptRequest struct {
	Result string `json:"result" binding:"required"`
}

func (h *Handler) inspectReceipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req inspectReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.procurement.Inspect(c.Request.Context(), c.Param("projectId"), id, model.InspectionResult(req.Result), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(*receipt))
}

func (h *Handler) receiveReceipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	receipt, err := h.procurement.MarkReceived(c.Request.Context(), c.Param("projectId"), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(*receipt))
}

func (h *Handler) completeReceipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	receipt, err := h.procurement.Complete(c.Request.Context(), c.Param("projectId"), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(*receipt))
}

func (h *Handler) deleteReceipt(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	if err := h.procurement.DeleteReceipt(c.Request.Context(), c.Param("projectId"), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "delivery receipt deleted"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = service.ErrNotFound
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrMissingReason):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrAlreadyApproved),
		errors.Is(err, service.ErrImmutableRecord):
		status = http.StatusConflict
	case errors.Is(err, service.ErrPreconditionFailed),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrDateOrderViolation),
		errors.Is(err, service.ErrEvidenceRequired):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error", "code": service.ErrorCode(err)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
}

func pathUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeEvidence(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(raw)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
