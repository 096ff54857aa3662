package exchanges

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ecoswap/ecoswap-api/internal/notifications"
	"github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/internal/testdb"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/db"
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/ecoswap/ecoswap-api/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lifecycle struct {
	conn          *gorm.DB
	svc           Service
	users         users.Service
	notifications notifications.Service
	registry      *prometheus.Registry
	owner         *models.User
	requester     *models.User
	outsider      *models.User
	product       *models.Product
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	conn := testdb.Open(t)

	cache, err := users.NewSummaryCache(16)
	require.NoError(t, err)
	userSvc, err := users.NewService(users.NewRepository(conn), cache)
	require.NoError(t, err)
	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.FromConn(conn),
		Products: products.NewStore(products.NewRepository(conn)),
		Users:    userSvc,
		Notifier: notificationSvc,
		Policy:   NewTransitionPolicy(false),
		Metrics:  metrics.NewExchangeMetrics(registry),
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
	})
	require.NoError(t, err)

	owner := testdb.MustCreateUser(t, conn, "Ada")
	return &lifecycle{
		conn:          conn,
		svc:           svc,
		users:         userSvc,
		notifications: notificationSvc,
		registry:      registry,
		owner:         owner,
		requester:     testdb.MustCreateUser(t, conn, "Grace"),
		outsider:      testdb.MustCreateUser(t, conn, "Linus"),
		product:       testdb.MustCreateProduct(t, conn, owner.ID, "P1"),
	}
}

func (l *lifecycle) transition(t *testing.T, exchangeID uuid.UUID, status enums.ExchangeStatus) *ExchangeDTO {
	t.Helper()
	out, err := l.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		ExchangeID: exchangeID,
		ActorID:    l.owner.ID,
		Status:     status,
	})
	require.NoError(t, err)
	return out
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabel(metric, label, value) {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}
	return false
}

func TestLifecycle_DonationScenario(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	created, err := l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "I'd love to give this a second home",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ExchangeStatusPending, created.Status)
	assert.Equal(t, l.owner.ID, created.Owner.ID)
	assert.Equal(t, "Ada", created.Owner.Name)
	assert.Equal(t, "Grace", created.Requester.Name)
	require.NotNil(t, created.Product)
	assert.Equal(t, "P1", created.Product.Title)

	accepted := l.transition(t, created.ID, enums.ExchangeStatusAccepted)
	assert.Equal(t, enums.ExchangeStatusAccepted, accepted.Status)

	park := "Park"
	meetAt := time.Date(2026, 11, 7, 14, 30, 0, 0, time.UTC)
	arranged, err := l.svc.UpdateStatus(ctx, UpdateStatusInput{
		ExchangeID:     created.ID,
		ActorID:        l.owner.ID,
		Status:         enums.ExchangeStatusArranged,
		MeetupLocation: &park,
		MeetupTime:     &meetAt,
	})
	require.NoError(t, err)
	require.NotNil(t, arranged.MeetupLocation)
	assert.Equal(t, "Park", *arranged.MeetupLocation)
	require.NotNil(t, arranged.MeetupTime)
	assert.True(t, arranged.MeetupTime.Equal(meetAt))

	completed := l.transition(t, created.ID, enums.ExchangeStatusCompleted)
	assert.Equal(t, enums.ExchangeStatusCompleted, completed.Status)

	var product models.Product
	require.NoError(t, l.conn.First(&product, "id = ?", l.product.ID).Error)
	assert.Equal(t, enums.ProductStatusExchanged, product.Status)

	_, err = l.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: created.ID, ActorID: l.outsider.ID, Rating: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = l.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: created.ID, ActorID: l.owner.ID, Rating: 5})
	require.NoError(t, err)
	thanks := "Thanks!"
	final, err := l.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: created.ID, ActorID: l.requester.ID, Rating: 4, Comment: &thanks})
	require.NoError(t, err)
	require.NotNil(t, final.OwnerFeedback)
	require.NotNil(t, final.RequesterFeedback)
	assert.Equal(t, 5, final.OwnerFeedback.Rating)
	assert.Equal(t, 4, final.RequesterFeedback.Rating)
	require.NotNil(t, final.RequesterFeedback.Comment)
	assert.Equal(t, "Thanks!", *final.RequesterFeedback.Comment)

	_, err = l.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: created.ID, ActorID: l.owner.ID, Rating: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "second owner feedback: %v", err)

	ownerProfile, err := l.users.Get(ctx, l.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, ownerProfile.Reputation.Average)
	assert.Equal(t, 1, ownerProfile.Reputation.Count)

	ownerInbox, err := l.notifications.List(ctx, notifications.ListParams{RecipientID: l.owner.ID})
	require.NoError(t, err)
	require.Len(t, ownerInbox.Items, 1)
	assert.Equal(t, enums.NotificationTypeExchangeRequest, ownerInbox.Items[0].Type)

	requesterInbox, err := l.notifications.List(ctx, notifications.ListParams{RecipientID: l.requester.ID})
	require.NoError(t, err)
	require.Len(t, requesterInbox.Items, 3)

	assert.Equal(t, 1.0, counterValue(t, l.registry, "ecoswap_exchanges_created_total", "type", "donation"))
	assert.Equal(t, 1.0, counterValue(t, l.registry, "ecoswap_exchange_transitions_total", "to", "Completed"))
	assert.Equal(t, 2.0, counterValue(t, l.registry, "ecoswap_exchange_feedback_total", "role", "owner")+
		counterValue(t, l.registry, "ecoswap_exchange_feedback_total", "role", "requester"))
}

func TestLifecycle_CreateRefusals(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	_, err := l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.owner.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "mine",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidOperation), "owner request: %v", err)

	_, err = l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeExchange,
		Message:     "swap?",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing details: %v", err)

	details := "A set of novels"
	first, err := l.svc.Create(ctx, CreateInput{
		ProductID:           l.product.ID,
		RequesterID:         l.requester.ID,
		Type:                enums.ExchangeTypeExchange,
		Message:             "swap?",
		ExchangeItemDetails: &details,
	})
	require.NoError(t, err)
	require.NotNil(t, first.ExchangeItemDetails)

	_, err = l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "again",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "duplicate: %v", err)

	// A rejected request frees the slot for a new one.
	l.transition(t, first.ID, enums.ExchangeStatusRejected)
	_, err = l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "again",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, l.conn.Model(&models.Exchange{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestLifecycle_UniqueIndexBacksDuplicateCheck(t *testing.T) {
	l := newLifecycle(t)
	repo := NewRepository(l.conn)
	ctx := context.Background()

	row := func() *models.Exchange {
		return &models.Exchange{
			ID:          uuid.New(),
			ProductID:   l.product.ID,
			OwnerID:     l.owner.ID,
			RequesterID: l.requester.ID,
			Type:        enums.ExchangeTypeDonation,
			Message:     "hi",
			Status:      enums.ExchangeStatusPending,
		}
	}
	require.NoError(t, repo.Create(ctx, row()))
	err := repo.Create(ctx, row())
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, activeExchangeIndex))
}

func TestLifecycle_NonOwnerCannotTransition(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	created, err := l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "please",
	})
	require.NoError(t, err)

	for _, actor := range []uuid.UUID{l.requester.ID, l.outsider.ID} {
		for _, target := range everyStatus {
			_, err := l.svc.UpdateStatus(ctx, UpdateStatusInput{ExchangeID: created.ID, ActorID: actor, Status: target})
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "actor %s target %s: %v", actor, target, err)
		}
	}

	got, err := l.svc.Get(ctx, created.ID, l.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExchangeStatusPending, got.Status)

	_, err = l.svc.Get(ctx, created.ID, l.outsider.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	assert.Equal(t, 10.0, counterValue(t, l.registry, "ecoswap_exchange_transitions_refused_total", "code", "FORBIDDEN"))
}

func TestLifecycle_CompletionRollsBackWhenProductUpdateFails(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	created, err := l.svc.Create(ctx, CreateInput{
		ProductID:   l.product.ID,
		RequesterID: l.requester.ID,
		Type:        enums.ExchangeTypeDonation,
		Message:     "please",
	})
	require.NoError(t, err)
	l.transition(t, created.ID, enums.ExchangeStatusAccepted)
	park := "Park"
	meetAt := time.Date(2026, 11, 7, 14, 30, 0, 0, time.UTC)
	_, err = l.svc.UpdateStatus(ctx, UpdateStatusInput{
		ExchangeID:     created.ID,
		ActorID:        l.owner.ID,
		Status:         enums.ExchangeStatusArranged,
		MeetupLocation: &park,
		MeetupTime:     &meetAt,
	})
	require.NoError(t, err)

	require.NoError(t, l.conn.Exec("DELETE FROM products WHERE id = ?", l.product.ID).Error)

	_, err = l.svc.UpdateStatus(ctx, UpdateStatusInput{ExchangeID: created.ID, ActorID: l.owner.ID, Status: enums.ExchangeStatusCompleted})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, map[string]any{"step": "product_status"}, typed.Details())

	var stored models.Exchange
	require.NoError(t, l.conn.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, enums.ExchangeStatusArranged, stored.Status)

	requesterInbox, err := l.notifications.List(ctx, notifications.ListParams{RecipientID: l.requester.ID})
	require.NoError(t, err)
	assert.Len(t, requesterInbox.Items, 2, "completion notification must roll back")
}

func TestLifecycle_ListForUserNewestFirst(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()
	second := testdb.MustCreateProduct(t, l.conn, l.owner.ID, "P2")

	older, err := l.svc.Create(ctx, CreateInput{ProductID: l.product.ID, RequesterID: l.requester.ID, Type: enums.ExchangeTypeDonation, Message: "one"})
	require.NoError(t, err)
	require.NoError(t, l.conn.Model(&models.Exchange{}).Where("id = ?", older.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer, err := l.svc.Create(ctx, CreateInput{ProductID: second.ID, RequesterID: l.requester.ID, Type: enums.ExchangeTypeDonation, Message: "two"})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{l.owner.ID, l.requester.ID} {
		list, err := l.svc.ListForUser(ctx, id)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
		require.NotNil(t, list[0].Product)
		assert.Equal(t, "P2", list[0].Product.Title)
		assert.Equal(t, "Grace", list[1].Requester.Name)
	}

	list, err := l.svc.ListForUser(ctx, l.outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
