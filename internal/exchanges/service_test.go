package exchanges

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ecoswap/ecoswap-api/internal/notifications"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type fakeRepo struct {
	exchanges      map[uuid.UUID]*models.Exchange
	hasActive      bool
	createErr      error
	casLost        bool
	feedbackLost   bool
	created        []*models.Exchange
	statusWrites   int
	feedbackWrites int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{exchanges: map[uuid.UUID]*models.Exchange{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, exchange *models.Exchange) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, exchange)
	f.exchanges[exchange.ID] = exchange
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	e, ok := f.exchanges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *e
	return &clone, nil
}

func (f *fakeRepo) HasActive(ctx context.Context, productID, requesterID uuid.UUID) (bool, error) {
	return f.hasActive, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ExchangeStatus, meetup *Meetup) (bool, error) {
	if f.casLost {
		return false, nil
	}
	e := f.exchanges[id]
	if e.Status != from {
		return false, nil
	}
	f.statusWrites++
	e.Status = to
	if meetup != nil && meetup.Location != "" {
		location := meetup.Location
		e.MeetupLocation = &location
	}
	if meetup != nil && !meetup.Time.IsZero() {
		when := meetup.Time
		e.MeetupTime = &when
	}
	return true, nil
}

func (f *fakeRepo) SubmitFeedback(ctx context.Context, id uuid.UUID, role Role, feedback models.Feedback) (bool, error) {
	if f.feedbackLost {
		return false, nil
	}
	f.feedbackWrites++
	e := f.exchanges[id]
	if role == RoleOwner {
		e.OwnerFeedback = feedback
	} else {
		e.RequesterFeedback = feedback
	}
	return true, nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Exchange, error) {
	var out []models.Exchange
	for _, e := range f.exchanges {
		if e.OwnerID == userID || e.RequesterID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeProducts struct {
	products        map[uuid.UUID]*models.Product
	updateStatusErr error
}

func (f *fakeProducts) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProducts) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.ProductStatus) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	f.products[id].Status = status
	return nil
}

type fakeDirectory struct {
	summaries map[uuid.UUID]users.Summary
}

func (f fakeDirectory) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]users.Summary, error) {
	out := map[uuid.UUID]users.Summary{}
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeNotifier struct {
	recorded []notifications.RecordInput
	err      error
}

func (f *fakeNotifier) Record(ctx context.Context, tx *gorm.DB, input notifications.RecordInput) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, input)
	return nil
}

type fixture struct {
	svc       Service
	repo      *fakeRepo
	products  *fakeProducts
	notifier  *fakeNotifier
	owner     uuid.UUID
	requester uuid.UUID
	product   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	owner, requester := uuid.New(), uuid.New()
	product := &models.Product{
		ID:      uuid.New(),
		OwnerID: owner,
		Title:   "Oak chair",
		Status:  enums.ProductStatusAvailable,
	}
	f := &fixture{
		repo:      newFakeRepo(),
		products:  &fakeProducts{products: map[uuid.UUID]*models.Product{product.ID: product}},
		notifier:  &fakeNotifier{},
		owner:     owner,
		requester: requester,
		product:   product,
	}
	directory := fakeDirectory{summaries: map[uuid.UUID]users.Summary{
		owner:     {ID: owner, Name: "Ada"},
		requester: {ID: requester, Name: "Grace"},
	}}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Tx:       &fakeTx{},
		Products: f.products,
		Users:    directory,
		Notifier: f.notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) seed(status enums.ExchangeStatus) *models.Exchange {
	e := &models.Exchange{
		ID:          uuid.New(),
		ProductID:   f.product.ID,
		OwnerID:     f.owner,
		RequesterID: f.requester,
		Type:        enums.ExchangeTypeDonation,
		Message:     "I'd love this",
		Status:      status,
	}
	f.repo.exchanges[e.ID] = e
	return e
}

func (f *fixture) donation() CreateInput {
	return CreateInput{
		ProductID:   f.product.ID,
		RequesterID: f.requester,
		Type:        enums.ExchangeTypeDonation,
		Message:     "Could I have it?",
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if got := pkgerrors.CodeOf(err); err == nil || got != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func TestCreateSuccessNotifiesOwner(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.Create(context.Background(), f.donation())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Status != enums.ExchangeStatusPending {
		t.Fatalf("expected Pending, got %s", dto.Status)
	}
	if dto.Owner.ID != f.owner || dto.Owner.Name != "Ada" {
		t.Fatalf("owner should be derived from product, got %+v", dto.Owner)
	}
	if dto.Requester.Name != "Grace" {
		t.Fatalf("expected requester summary, got %+v", dto.Requester)
	}
	if dto.Product == nil || dto.Product.Title != "Oak chair" {
		t.Fatalf("expected product summary, got %+v", dto.Product)
	}
	if len(f.notifier.recorded) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.recorded))
	}
	note := f.notifier.recorded[0]
	if note.RecipientID != f.owner || note.Type != enums.NotificationTypeExchangeRequest {
		t.Fatalf("unexpected notification %+v", note)
	}
	if note.ExchangeID == nil || *note.ExchangeID != dto.ID {
		t.Fatalf("notification should reference the exchange")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := f.donation()
	input.Type = enums.ExchangeTypeExchange
	_, err := f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeValidation)

	blank := "   "
	input.ExchangeItemDetails = &blank
	_, err = f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeValidation)

	input = f.donation()
	input.Message = " "
	_, err = f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeValidation)

	input = f.donation()
	input.Type = "gift"
	_, err = f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeValidation)

	if len(f.repo.created) != 0 {
		t.Fatal("invalid input must not be persisted")
	}
}

func TestCreateRefusals(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	input := f.donation()
	input.ProductID = uuid.New()
	_, err := f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeNotFound)

	input = f.donation()
	input.RequesterID = f.owner
	_, err = f.svc.Create(ctx, input)
	expectCode(t, err, pkgerrors.CodeInvalidOperation)

	f.product.Status = enums.ProductStatusExchanged
	_, err = f.svc.Create(ctx, f.donation())
	expectCode(t, err, pkgerrors.CodeInvalidOperation)
}

func TestCreateRefusalsTakePrecedenceOverBodyValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		setup  func()
		want   pkgerrors.Code
	}{
		{
			name: "missing product with blank message",
			mutate: func(in *CreateInput) {
				in.ProductID = uuid.New()
				in.Message = " "
			},
			want: pkgerrors.CodeNotFound,
		},
		{
			name: "own product with empty message",
			mutate: func(in *CreateInput) {
				in.RequesterID = f.owner
				in.Message = ""
			},
			want: pkgerrors.CodeInvalidOperation,
		},
		{
			name: "exchanged product with unknown type",
			mutate: func(in *CreateInput) {
				in.Type = "gift"
			},
			setup: func() { f.product.Status = enums.ProductStatusExchanged },
			want:  pkgerrors.CodeInvalidOperation,
		},
		{
			name: "duplicate request without item details",
			mutate: func(in *CreateInput) {
				in.Type = enums.ExchangeTypeExchange
			},
			setup: func() { f.repo.hasActive = true },
			want:  pkgerrors.CodeConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.product.Status = enums.ProductStatusAvailable
			f.repo.hasActive = false
			if tc.setup != nil {
				tc.setup()
			}
			input := f.donation()
			tc.mutate(&input)
			_, err := f.svc.Create(ctx, input)
			expectCode(t, err, tc.want)
		})
	}
	if len(f.repo.created) != 0 {
		t.Fatal("refused requests must not be persisted")
	}
}

func TestCreateWithoutRequesterProfile(t *testing.T) {
	f := newFixture(t)
	input := f.donation()
	input.RequesterID = uuid.New()

	dto, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Status != enums.ExchangeStatusPending {
		t.Fatalf("expected Pending, got %s", dto.Status)
	}
	if dto.Requester.ID != input.RequesterID || dto.Requester.Name != "" {
		t.Fatalf("expected id-only requester summary, got %+v", dto.Requester)
	}
	if len(f.notifier.recorded) != 1 || f.notifier.recorded[0].Message != `Someone would like your "Oak chair".` {
		t.Fatalf("unexpected notifications %+v", f.notifier.recorded)
	}
}

func TestCreateDuplicateActiveRequest(t *testing.T) {
	f := newFixture(t)
	f.repo.hasActive = true

	_, err := f.svc.Create(context.Background(), f.donation())
	expectCode(t, err, pkgerrors.CodeConflict)
	if len(f.notifier.recorded) != 0 {
		t.Fatal("conflict must not notify")
	}
}

func TestCreateUniqueIndexRaceMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "exchanges_active_product_requester_uidx" (SQLSTATE 23505)`)

	_, err := f.svc.Create(context.Background(), f.donation())
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateNotificationFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("insert failed")

	_, err := f.svc.Create(context.Background(), f.donation())
	expectCode(t, err, pkgerrors.CodeDependency)
}

func TestUpdateStatusForbiddenForRequester(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusPending)

	for _, target := range everyStatus {
		_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: e.ID, ActorID: f.requester, Status: target})
		expectCode(t, err, pkgerrors.CodeForbidden)
	}
	if f.repo.statusWrites != 0 {
		t.Fatal("refused transitions must not write")
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: uuid.New(), ActorID: f.owner, Status: enums.ExchangeStatusAccepted})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: e.ID, ActorID: f.owner, Status: enums.ExchangeStatusCompleted})
	expectCode(t, err, pkgerrors.CodeInvalidTransition)
	if f.products.products[f.product.ID].Status != enums.ProductStatusAvailable {
		t.Fatal("product must stay available")
	}
}

func TestUpdateStatusArrangeRequiresMeetup(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusAccepted)
	location := "Central Park"

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		ExchangeID:     e.ID,
		ActorID:        f.owner,
		Status:         enums.ExchangeStatusArranged,
		MeetupLocation: &location,
	})
	expectCode(t, err, pkgerrors.CodeValidation)

	when := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC)
	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		ExchangeID:     e.ID,
		ActorID:        f.owner,
		Status:         enums.ExchangeStatusArranged,
		MeetupLocation: &location,
		MeetupTime:     &when,
	})
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	if dto.MeetupLocation == nil || *dto.MeetupLocation != location || dto.MeetupTime == nil || !dto.MeetupTime.Equal(when) {
		t.Fatalf("meetup not stored: %+v", dto)
	}
	last := f.notifier.recorded[len(f.notifier.recorded)-1]
	if last.RecipientID != f.requester || last.Type != enums.NotificationTypeMeetupArranged {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestUpdateStatusLostRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusPending)
	f.repo.casLost = true

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: e.ID, ActorID: f.owner, Status: enums.ExchangeStatusAccepted})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCompleteProductFailureSurfacesDependencyError(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusArranged)
	f.products.updateStatusErr = errors.New("connection reset")

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: e.ID, ActorID: f.owner, Status: enums.ExchangeStatusCompleted})
	expectCode(t, err, pkgerrors.CodeDependency)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["step"] != "product_status" {
		t.Fatalf("expected product_status step detail, got %#v", pkgerrors.As(err).Details())
	}
}

func TestLegacyPolicyAllowsSkippingSteps(t *testing.T) {
	f := newFixture(t)
	svc := f.svc.(*service)
	svc.policy = NewTransitionPolicy(true)
	e := f.seed(enums.ExchangeStatusPending)

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{ExchangeID: e.ID, ActorID: f.owner, Status: enums.ExchangeStatusCompleted})
	if err != nil {
		t.Fatalf("legacy complete: %v", err)
	}
	if dto.Status != enums.ExchangeStatusCompleted {
		t.Fatalf("expected Completed, got %s", dto.Status)
	}
	if f.products.products[f.product.ID].Status != enums.ProductStatusExchanged {
		t.Fatal("completion should mark the product exchanged")
	}
}

func TestLegacyPolicyStoresPartialMeetup(t *testing.T) {
	f := newFixture(t)
	svc := f.svc.(*service)
	svc.policy = NewTransitionPolicy(true)
	e := f.seed(enums.ExchangeStatusPending)
	location := " Library steps "

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		ExchangeID:     e.ID,
		ActorID:        f.owner,
		Status:         enums.ExchangeStatusAccepted,
		MeetupLocation: &location,
	})
	if err != nil {
		t.Fatalf("legacy accept: %v", err)
	}
	if dto.MeetupLocation == nil || *dto.MeetupLocation != "Library steps" {
		t.Fatalf("expected meetup location stored, got %+v", dto.MeetupLocation)
	}
	if dto.MeetupTime != nil {
		t.Fatalf("meetup time was not supplied, got %v", dto.MeetupTime)
	}
}

func TestStrictPolicyIgnoresMeetupOutsideArrange(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusPending)
	location := "Library steps"

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		ExchangeID:     e.ID,
		ActorID:        f.owner,
		Status:         enums.ExchangeStatusAccepted,
		MeetupLocation: &location,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if dto.MeetupLocation != nil {
		t.Fatalf("meetup must only be stored when arranging, got %q", *dto.MeetupLocation)
	}
}

func TestSubmitFeedbackRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.seed(enums.ExchangeStatusArranged)

	_, err := f.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: e.ID, ActorID: uuid.New(), Rating: 5})
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: e.ID, ActorID: f.requester, Rating: 5})
	expectCode(t, err, pkgerrors.CodeInvalidTransition)

	e.Status = enums.ExchangeStatusCompleted
	_, err = f.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: e.ID, ActorID: f.requester, Rating: 6})
	expectCode(t, err, pkgerrors.CodeValidation)

	comment := "Smooth handover"
	dto, err := f.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: e.ID, ActorID: f.requester, Rating: 5, Comment: &comment})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if dto.RequesterFeedback == nil || dto.RequesterFeedback.Rating != 5 || dto.OwnerFeedback != nil {
		t.Fatalf("expected requester slot filled only, got %+v / %+v", dto.RequesterFeedback, dto.OwnerFeedback)
	}

	f.repo.feedbackLost = true
	_, err = f.svc.SubmitFeedback(ctx, FeedbackInput{ExchangeID: e.ID, ActorID: f.requester, Rating: 4})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestSubmitFeedbackRefusalsTakePrecedenceOverRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	completed := f.seed(enums.ExchangeStatusCompleted)
	arranged := f.seed(enums.ExchangeStatusArranged)

	tests := []struct {
		name  string
		input FeedbackInput
		want  pkgerrors.Code
	}{
		{"outsider with zero rating", FeedbackInput{ExchangeID: completed.ID, ActorID: uuid.New(), Rating: 0}, pkgerrors.CodeForbidden},
		{"missing exchange with rating nine", FeedbackInput{ExchangeID: uuid.New(), ActorID: f.requester, Rating: 9}, pkgerrors.CodeNotFound},
		{"open exchange with zero rating", FeedbackInput{ExchangeID: arranged.ID, ActorID: f.owner, Rating: 0}, pkgerrors.CodeInvalidTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SubmitFeedback(ctx, tc.input)
			expectCode(t, err, tc.want)
		})
	}
	if f.repo.feedbackWrites != 0 {
		t.Fatal("refused feedback must not write")
	}
}

func TestSubmitFeedbackCommentLength(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusCompleted)
	long := make([]rune, maxCommentLength+1)
	for i := range long {
		long[i] = 'é'
	}
	comment := string(long)

	_, err := f.svc.SubmitFeedback(context.Background(), FeedbackInput{ExchangeID: e.ID, ActorID: f.owner, Rating: 3, Comment: &comment})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestGetIsPartyOnly(t *testing.T) {
	f := newFixture(t)
	e := f.seed(enums.ExchangeStatusPending)

	if _, err := f.svc.Get(context.Background(), e.ID, f.requester); err != nil {
		t.Fatalf("requester get: %v", err)
	}
	_, err := f.svc.Get(context.Background(), e.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(context.Background(), uuid.New(), f.owner)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestListForUserEmpty(t *testing.T) {
	f := newFixture(t)

	list, err := f.svc.ListForUser(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}
