package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"issue-guardian/analyzers"
	"issue-guardian/classifier"
	"issue-guardian/config"
	"issue-guardian/db"
	"issue-guardian/decision"
	"issue-guardian/eventbus"
	"issue-guardian/events"
	"issue-guardian/pipeline"
	"issue-guardian/repositories"
	"issue-guardian/vectorstore"
	"issue-guardian/webhook"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx); err != nil {
		config.Logger.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}

	// 벡터 저장소 초기화 (컬렉션/인덱스 멱등 생성)
	store, err := vectorstore.GetStore()
	if err != nil {
		config.Logger.Errorf("failed to create vector store: %v", err)
		os.Exit(1)
	}
	if err := store.Initialize(ctx); err != nil {
		// 벡터 저장소가 없어도 규칙/AI 점수만으로 검수는 진행된다.
		config.Logger.Errorf("vector store initialization failed, duplicate/RAG lookups degraded: %v", err)
	}

	// 분석기 초기화 (장수 핸들, 프로세스 시작 시 1회)
	embedder, err := analyzers.NewGeminiEmbedder(ctx, cfg.Analyzers, cfg.Vector.TextDim)
	if err != nil {
		config.Logger.Errorf("failed to create text embedder: %v", err)
		os.Exit(1)
	}
	media := analyzers.NewInferenceClient(cfg.Analyzers)

	// 파이프라인 조립
	database := db.Database()
	runner := pipeline.NewRunner(
		repositories.NewIssueRepository(database),
		repositories.NewModerationLogRepository(database),
		classifier.NewAggregator(embedder, media, store),
		decision.NewEngine(),
		store,
		webhook.NewDispatcher(os.Getenv("MAIN_BACKEND_WEBHOOK_URL"), cfg.Webhook.TimeoutSeconds),
	)

	// EventBus 초기화 및 토픽 보장
	brokers := eventbus.GetBrokers()
	if err := eventbus.EnsureTopics(brokers, eventbus.TopicModerationEvents, 3); err != nil {
		config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	groupID := eventbus.GetGroupID()

	// 메인 구독 러너
	subscribeRunner := func() error {
		return bus.Subscribe(ctx, groupID, eventbus.TopicModerationEvents, func(ctx context.Context, ev eventbus.Event) error {
			// 이벤트 타입만 먼저 파싱 (BaseEvent.Type는 top-level에 있음)
			var peek struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(ev.Payload, &peek); err != nil {
				return err
			}
			switch events.EventType(peek.Type) {
			case events.IssueReported:
				v, err := eventbus.DecodeJSON[events.IssueReportedEvent](ev)
				if err != nil {
					return err
				}
				final, err := runner.Moderate(ctx, v.IssueID)
				if err != nil {
					return err
				}
				publishCompleted(ctx, bus, v.IssueID, final)
				return nil
			default:
				// 알 수 없는 타입 또는 다른 서비스용 이벤트는 무시 (커밋)
				return nil
			}
		})
	}

	config.Logger.Info("starting moderation worker with eventbus...")

	// Graceful shutdown 설정
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := subscribeRunner(); err != nil && err != context.Canceled {
			config.Logger.Errorf("eventbus subscribe error: %v", err)
		}
	}()

	<-sigChan
	config.Logger.Info("received shutdown signal, shutting down moderation worker...")

	cancel()
	wg.Wait()

	config.Logger.Info("moderation worker stopped")
}

// publishCompleted 는 검수 완료 이벤트를 발행한다. 후속 소비자(통계, 알림)용이며
// 발행 실패가 검수 자체를 되돌리지는 않는다.
func publishCompleted(ctx context.Context, bus eventbus.EventBus, issueID primitive.ObjectID, final *decision.Decision) {
	evt, err := eventbus.NewJSONEvent("", events.ModerationCompletedEvent{
		BaseEvent: events.BaseEvent{
			Type:      events.ModerationCompleted,
			Timestamp: time.Now(),
			Source:    "worker",
			Version:   "1",
		},
		IssueID:  issueID,
		Decision: string(final.Tier),
		Score:    final.Score,
		Reason:   final.Reason,
	}, 0)
	if err != nil {
		config.Logger.Errorf("제보 %s 완료 이벤트 구성 실패: %v", issueID.Hex(), err)
		return
	}
	if err := bus.Publish(ctx, eventbus.TopicModerationEvents.Base(), evt); err != nil {
		config.Logger.Errorf("제보 %s 완료 이벤트 발행 실패: %v", issueID.Hex(), err)
	}
}
