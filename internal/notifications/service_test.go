package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	paginationpkg "github.com/veritasmarket/veritas-backend/pkg/pagination"
)

type fakeRepository struct {
	created       []*models.Notification
	createErr     error
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, recipientID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, recipientID, now)
	}
	return 0, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo, fakeTxRunner{}, &fakeOutbox{})
	return svc
}

func TestService_RecordPersistsAndEmits(t *testing.T) {
	repo := &fakeRepository{}
	publisher := &fakeOutbox{}
	svc, err := NewService(repo, fakeTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	recipient := uuid.New()
	disputeID := uuid.New()
	notification, err := svc.Record(context.Background(), RecordInput{
		RecipientID: recipient,
		DisputeID:   &disputeID,
		Type:        enums.NotificationTypeDisputeResolved,
		Title:       "  Dispute resolved  ",
		Message:     "The dispute was resolved as refund_buyer.",
	})
	if err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}
	if notification.Title != "Dispute resolved" {
		t.Fatalf("expected trimmed title, got %q", notification.Title)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(repo.created))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 emitted event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.EventNotificationRequested {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != notification.ID {
		t.Fatalf("expected aggregate id %s got %s", notification.ID, event.AggregateID)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})

	cases := map[string]RecordInput{
		"missing recipient": {Type: enums.NotificationTypeDisputeCreated, Title: "t", Message: "m"},
		"invalid type":      {RecipientID: uuid.New(), Type: "bogus", Title: "t", Message: "m"},
		"blank title":       {RecipientID: uuid.New(), Type: enums.NotificationTypeDisputeCreated, Title: "  ", Message: "m"},
		"blank message":     {RecipientID: uuid.New(), Type: enums.NotificationTypeDisputeCreated, Title: "t", Message: ""},
	}
	for name, input := range cases {
		if _, err := svc.Record(context.Background(), input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestService_RecordOutboxFailureAborts(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, fakeTxRunner{}, &fakeOutbox{err: errors.New("emit failed")})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	_, err = svc.Record(context.Background(), RecordInput{
		RecipientID: uuid.New(),
		Type:        enums.NotificationTypeDisputeCreated,
		Title:       "Dispute filed",
		Message:     "Your dispute was filed.",
	})
	if err == nil {
		t.Fatal("expected record error when outbox emit fails")
	}
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}
	second := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			if params.Limit != paginationpkg.LimitWithBuffer(1) {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.Notification{first}, &paginationpkg.Cursor{CreatedAt: second.CreatedAt, ID: second.ID}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", result.Cursor, err)
	}
	if decoded.ID != second.ID {
		t.Fatalf("expected cursor id %s got %s", second.ID, decoded.ID)
	}
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Cursor: "bad"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	errCode := pkgerrors.As(err).Code()
	if errCode != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", errCode)
	}
}

func TestService_ListNotificationsUnreadOnly(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			if !params.UnreadOnly {
				t.Fatal("expected unread-only filter to propagate")
			}
			return nil, nil, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if _, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), UnreadOnly: true}); err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected mark read error: %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected not found error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(repo)
	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected mark all read error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated rows, got %d", count)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(repo)
	if _, err := svc.MarkAllRead(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
