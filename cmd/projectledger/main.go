package main

import (
	"fmt"
	"os"

	"github.com/nusakarya/projectledger/internal/auth"
	"github.com/nusakarya/projectledger/internal/config"
	"github.com/nusakarya/projectledger/internal/db"
	"github.com/nusakarya/projectledger/internal/excel"
	httphandler "github.com/nusakarya/projectledger/internal/http"
	"github.com/nusakarya/projectledger/internal/http/middleware"
	"github.com/nusakarya/projectledger/internal/logger"
	"github.com/nusakarya/projectledger/internal/pdf"
	"github.com/nusakarya/projectledger/internal/repository"
	"github.com/nusakarya/projectledger/internal/service"
	"github.com/nusakarya/projectledger/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init file storage")
	}

	projectRepo := repository.NewProjectRepository(database)
	cascadeStore := repository.NewCascadeStore(database)
	certificateRepo := repository.NewCertificateRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	budgetRepo := repository.NewBudgetRepository(database)
	milestoneRepo := repository.NewMilestoneRepository(database)
	rabRepo := repository.NewRABRepository(database)
	poRepo := repository.NewPORepository(database)
	receiptRepo := repository.NewReceiptRepository(database)

	pdfGenerator := pdf.NewGenerator()
	excelGenerator := excel.NewGenerator()

	financeTerms := service.FinanceTerms{
		TaxRate:          cfg.Finance.TaxRate,
		RetentionRate:    cfg.Finance.RetentionRate,
		PaymentTermsDays: cfg.Finance.PaymentTermsDays,
	}

	projectService := service.NewProjectService(projectRepo, cascadeStore)
	certificateService := service.NewCertificateService(certificateRepo, projectRepo, pdfGenerator, financeTerms)
	paymentService := service.NewPaymentService(paymentRepo, certificateRepo, projectRepo, fileStore, pdfGenerator, financeTerms)
	budgetService := service.NewBudgetService(budgetRepo, projectRepo, excelGenerator)
	milestoneService := service.NewMilestoneService(milestoneRepo)
	procurementService := service.NewProcurementService(rabRepo, poRepo, receiptRepo, fileStore)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		projectService,
		certificateService,
		paymentService,
		budgetService,
		milestoneService,
		procurementService,
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting project ledger service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
