package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/pkg/config"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
)

type fakePubSub struct{}

func (fakePubSub) Ping(ctx context.Context) error        { return nil }
func (fakePubSub) DomainPublisher() *gcppubsub.Publisher { return nil }

type fakeResult struct {
	err error
}

func (r fakeResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakeResult{err: p.err}
}

func setupPublisherTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stmt := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, attempts int) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		ID:           uuid.New(),
		EventType:    enums.OutboxEventOrderCompleted,
		AggregateID:  uuid.New(),
		Payload:      json.RawMessage(`{"version":1}`),
		Status:       enums.OutboxStatusPending,
		AttemptCount: attempts,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func newTestService(t *testing.T, db *gorm.DB, pub publisher, maxAttempts int) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config: &config.Config{Outbox: config.Outbox{
			BatchSize:    10,
			MaxAttempts:  maxAttempts,
			PollInterval: time.Second,
		}},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         db,
		PubSub:     fakePubSub{},
		Repository: outbox.NewRepository(db),
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestProcessBatchPublishesPendingEvents(t *testing.T) {
	db := setupPublisherTestDB(t)
	first := seedEvent(t, db, 0)
	seedEvent(t, db, 0)
	pub := &fakePublisher{}
	svc := newTestService(t, db, pub, 10)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report work")
	}
	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	if got := pub.messages[0].Attributes["event_type"]; got != string(enums.OutboxEventOrderCompleted) {
		t.Fatalf("event_type attribute = %q", got)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.Status != enums.OutboxStatusPublished {
		t.Fatalf("status = %s, want published", row.Status)
	}
	if row.PublishedAt == nil {
		t.Fatal("expected published_at to be set")
	}
}

func TestProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	db := setupPublisherTestDB(t)
	svc := newTestService(t, db, &fakePublisher{}, 10)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatal("expected idle batch")
	}
}

func TestProcessBatchRecordsPublishFailure(t *testing.T) {
	db := setupPublisherTestDB(t)
	event := seedEvent(t, db, 0)
	pub := &fakePublisher{err: errors.New("topic unavailable")}
	svc := newTestService(t, db, pub, 10)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.Status != enums.OutboxStatusPending {
		t.Fatalf("status = %s, want pending for retry", row.Status)
	}
	if row.AttemptCount != 1 {
		t.Fatalf("attempt_count = %d, want 1", row.AttemptCount)
	}
	if row.LastError == nil || *row.LastError == "" {
		t.Fatal("expected last_error to be recorded")
	}
}

func TestProcessBatchParksEventAfterMaxAttempts(t *testing.T) {
	db := setupPublisherTestDB(t)
	event := seedEvent(t, db, 1)
	pub := &fakePublisher{err: errors.New("topic unavailable")}
	svc := newTestService(t, db, pub, 2)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.Status != enums.OutboxStatusTerminal {
		t.Fatalf("status = %s, want terminal", row.Status)
	}
}
