package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"issue-guardian/cmd/api/router"
	"issue-guardian/cmd/api/services"
	"issue-guardian/config"
	"issue-guardian/db"
	"issue-guardian/eventbus"
	"issue-guardian/hitl"
	"issue-guardian/repositories"
	"issue-guardian/vectorstore"
	"issue-guardian/webhook"
)

// @title           Issue-Guardian API
// @version         1.0
// @description     Issue intake, moderation review, and dashboard API
// @BasePath        /api/v1
func main() {
	config.InitApp()
	cfg := config.GetConfig()

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		log.Fatal(err)
	}

	store, err := vectorstore.GetStore()
	if err != nil {
		log.Fatal(err)
	}
	if err := store.Initialize(ctx); err != nil {
		config.Logger.Errorf("vector store initialization failed, dashboard queries degraded: %v", err)
	}

	brokers := eventbus.GetBrokers()
	if err := eventbus.EnsureTopics(brokers, eventbus.TopicModerationEvents, 3); err != nil {
		config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
	}
	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	database := db.Database()
	issues := repositories.NewIssueRepository(database)
	logs := repositories.NewModerationLogRepository(database)
	dispatcher := webhook.NewDispatcher(os.Getenv("MAIN_BACKEND_WEBHOOK_URL"), cfg.Webhook.TimeoutSeconds)

	issueSvc := services.NewIssueService(issues, logs, bus)
	reviewSvc := services.NewReviewService(issues, hitl.NewEscalator(store), store, dispatcher)

	r := router.New(issueSvc, reviewSvc)
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler(r)

	if err := http.ListenAndServe(":8080", handler); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
