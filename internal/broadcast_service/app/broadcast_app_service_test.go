package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// --- Mocks ---

type MockContactDirectory struct {
	mock.Mock
}

func (m *MockContactDirectory) MobileNumbers(ctx context.Context, names []string) (map[string]string, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, job *domain.DispatchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func newTestService(contacts domain.ContactDirectory, dispatcher domain.Dispatcher) *BroadcastAppService {
	return newTestServiceWithStore(contacts, dispatcher, new(MockStatusStore))
}

func newTestServiceWithStore(contacts domain.ContactDirectory, dispatcher domain.Dispatcher, store domain.BroadcastStatusStore) *BroadcastAppService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBroadcastAppService(contacts, dispatcher, store, ServiceConfig{SenderID: "MTECH"}, logger)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestBroadcastAppService_ResolveRecipients(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit recipients win", func(t *testing.T) {
		contacts := new(MockContactDirectory)
		svc := newTestService(contacts, new(MockDispatcher))

		explicit := domain.Texts("254712345678")
		raw, err := svc.ResolveRecipients(ctx, domain.RecipientForm{Contact: "Alice"}, explicit)
		require.NoError(t, err)
		assert.Equal(t, explicit, raw)
		contacts.AssertNotCalled(t, "MobileNumbers", mock.Anything, mock.Anything)
	})

	t.Run("single contact looks up stored mobile", func(t *testing.T) {
		contacts := new(MockContactDirectory)
		contacts.On("MobileNumbers", ctx, []string{"Alice"}).Return(map[string]string{"Alice": "254712345678"}, nil).Once()
		svc := newTestService(contacts, new(MockDispatcher))

		raw, err := svc.ResolveRecipients(ctx, domain.RecipientForm{
			Contact: " Alice ", ContactMobileNumber: "254799999999", MobileNumbers: "0700000000",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"254712345678", "0700000000"}, ExtractRecipients(raw))
		contacts.AssertExpectations(t)
	})

	t.Run("single contact falls back to form mobile", func(t *testing.T) {
		contacts := new(MockContactDirectory)
		contacts.On("MobileNumbers", ctx, []string{"Alice"}).Return(map[string]string{}, nil).Once()
		svc := newTestService(contacts, new(MockDispatcher))

		raw, err := svc.ResolveRecipients(ctx, domain.RecipientForm{Contact: "Alice", ContactMobileNumber: "254799999999"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"254799999999"}, ExtractRecipients(raw))
	})

	t.Run("multiple contacts dedupe names and skip missing mobiles", func(t *testing.T) {
		contacts := new(MockContactDirectory)
		contacts.On("MobileNumbers", ctx, []string{"Alice", "Bob", "Carol"}).
			Return(map[string]string{"Alice": "254712345678", "Carol": "254700000000"}, nil).Once()
		svc := newTestService(contacts, new(MockDispatcher))

		raw, err := svc.ResolveRecipients(ctx, domain.RecipientForm{
			RecipientMode: "Multiple Contacts",
			Contacts:      []domain.ContactRow{{Contact: "Alice"}, {Contact: "Bob"}, {Contact: "Alice"}, {Contact: "Carol"}, {}},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"254712345678", "254700000000"}, ExtractRecipients(raw))
		contacts.AssertExpectations(t)
	})

	t.Run("nothing to send", func(t *testing.T) {
		svc := newTestService(new(MockContactDirectory), new(MockDispatcher))
		_, err := svc.ResolveRecipients(ctx, domain.RecipientForm{}, domain.Text("  "))
		assert.ErrorIs(t, err, domain.ErrNoRecipients)
	})

	t.Run("lookup failure is wrapped", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		contacts := new(MockContactDirectory)
		contacts.On("MobileNumbers", ctx, []string{"Alice"}).Return(nil, dbErr).Once()
		svc := newTestService(contacts, new(MockDispatcher))

		_, err := svc.ResolveRecipients(ctx, domain.RecipientForm{Contact: "Alice"}, nil)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestBroadcastAppService_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes unique valid numbers", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		var published *domain.DispatchJob
		dispatcher.On("Dispatch", ctx, mock.AnythingOfType("*domain.DispatchJob")).
			Run(func(args mock.Arguments) { published = args.Get(1).(*domain.DispatchJob) }).
			Return(nil).Once()
		svc := newTestService(new(MockContactDirectory), dispatcher)

		res, err := svc.Dispatch(ctx, DispatchRequest{
			BroadcastID: "BC-0001",
			Message:     "Your invoice is ready.",
			Form:        domain.RecipientForm{MobileNumbers: "254712345678, 254712345678; abc; 254700000000"},
		})
		require.NoError(t, err)
		require.NotNil(t, published)

		assert.Equal(t, []string{"254712345678", "254700000000"}, published.MSISDNs)
		assert.Equal(t, "Your invoice is ready.", published.Message)
		assert.Equal(t, "MTECH", published.Sender)
		assert.Equal(t, "Transactional", published.MessageType)
		assert.Equal(t, "BC-0001", published.BroadcastID)
		assert.NotEmpty(t, published.JobID)
		assert.Len(t, published.MessageID, 32)
		assert.Equal(t, DedupeKey("BC-0001", "Your invoice is ready.", published.MSISDNs), published.DedupeKey)
		assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), published.CreatedAt)

		assert.Equal(t, []string{"abc"}, res.Validation.InvalidEntries)
		assert.Equal(t, []string{"254712345678"}, res.Validation.DuplicateEntries)
		assert.Equal(t, "Ready to send.", res.Summary.Title)
		dispatcher.AssertExpectations(t)
	})

	t.Run("no valid recipients", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		svc := newTestService(new(MockContactDirectory), dispatcher)

		res, err := svc.Dispatch(ctx, DispatchRequest{Message: "Hi", Form: domain.RecipientForm{MobileNumbers: "abc;123"}})
		require.ErrorIs(t, err, domain.ErrNoValidRecipients)
		require.NotNil(t, res)
		assert.Equal(t, []string{"abc", "123"}, res.Validation.InvalidEntries)
		assert.Equal(t, BannerRed, res.Summary.BannerColor)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("missing template values stop the send", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		svc := newTestService(new(MockContactDirectory), dispatcher)

		_, err := svc.Dispatch(ctx, DispatchRequest{
			Message:        "Hello",
			Template:       "Hello {{name}}",
			TemplateValues: `{}`,
			Form:           domain.RecipientForm{MobileNumbers: "254712345678"},
		})
		assert.ErrorIs(t, err, domain.ErrMissingPlaceholders)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("dispatcher failure", func(t *testing.T) {
		pubErr := errors.New("nats: timeout")
		dispatcher := new(MockDispatcher)
		dispatcher.On("Dispatch", ctx, mock.Anything).Return(pubErr).Once()
		svc := newTestService(new(MockContactDirectory), dispatcher)

		_, err := svc.Dispatch(ctx, DispatchRequest{Message: "Hi", RecipientNumbers: domain.Texts("254712345678")})
		assert.ErrorIs(t, err, pubErr)
	})
}

func TestBroadcastAppService_CheckTemplate(t *testing.T) {
	svc := newTestService(new(MockContactDirectory), new(MockDispatcher))

	check, err := svc.CheckTemplate(context.Background(), "Hello {{name}}, your balance is {{balance}}", `{"name":"Jo"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"balance"}, check.MissingKeys)

	_, err = svc.CheckTemplate(context.Background(), "Hello {{name}}", "[1,2,3]")
	assert.ErrorIs(t, err, domain.ErrTemplateValuesNotObject)
}

func TestBroadcastAppService_PreviewForm(t *testing.T) {
	svc := newTestService(new(MockContactDirectory), new(MockDispatcher))

	res, summary := svc.PreviewForm(context.Background(), domain.RecipientForm{
		RecipientMode: "Multiple Contacts",
		Contacts:      []domain.ContactRow{{Contact: "Alice", MobileNo: "254712345678"}, {Contact: "Bob"}},
	})
	assert.Equal(t, 2, res.EnteredCount)
	assert.Equal(t, []string{"Bob"}, res.InvalidEntries)
	assert.Equal(t, BannerOrange, summary.BannerColor)
}

func TestDedupeKey(t *testing.T) {
	a := DedupeKey("b1", "hi", []string{"254712345678"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, DedupeKey("b1", "hi", []string{"254712345678"}))
	assert.NotEqual(t, a, DedupeKey("b1", "hi", []string{"254700000000"}))
}

func TestBroadcastAppService_ResendFailed(t *testing.T) {
	ctx := context.Background()
	updatedAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	t.Run("resends to failed recipients", func(t *testing.T) {
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "BC-1").Return(&domain.BroadcastRecord{
			ID:               "BC-1",
			Message:          " Meeting moved to 3pm ",
			MessageType:      "Promotional",
			Status:           domain.BroadcastStatusPartiallySent,
			FailedRecipients: []string{"254700000002", "bad", "+254 700 000 002", "254700000003"},
			UpdatedAt:        updatedAt,
		}, nil).Once()

		dispatcher := new(MockDispatcher)
		var sent *domain.DispatchJob
		dispatcher.On("Dispatch", ctx, mock.AnythingOfType("*domain.DispatchJob")).
			Run(func(args mock.Arguments) { sent = args.Get(1).(*domain.DispatchJob) }).
			Return(nil).Once()

		svc := newTestServiceWithStore(new(MockContactDirectory), dispatcher, store)
		res, err := svc.ResendFailed(ctx, " BC-1 ")
		require.NoError(t, err)
		require.NotNil(t, sent)

		assert.Equal(t, "BC-1", sent.BroadcastID)
		assert.Equal(t, "Meeting moved to 3pm", sent.Message)
		assert.Equal(t, "Promotional", sent.MessageType)
		assert.Equal(t, []string{"254700000002", "254700000003"}, sent.MSISDNs)
		assert.NotEqual(t, DedupeKey("BC-1", sent.Message, sent.MSISDNs), sent.DedupeKey)
		assert.Equal(t, []string{"bad"}, res.Validation.InvalidEntries)
		assert.Equal(t, []string{"254700000002"}, res.Validation.DuplicateEntries)
		store.AssertExpectations(t)
		dispatcher.AssertExpectations(t)
	})

	t.Run("same outcome gives the same dedupe key", func(t *testing.T) {
		record := &domain.BroadcastRecord{ID: "BC-1", Message: "Hi", FailedRecipients: []string{"254700000002"}, UpdatedAt: updatedAt}
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "BC-1").Return(record, nil).Twice()

		var keys []string
		dispatcher := new(MockDispatcher)
		dispatcher.On("Dispatch", ctx, mock.Anything).
			Run(func(args mock.Arguments) { keys = append(keys, args.Get(1).(*domain.DispatchJob).DedupeKey) }).
			Return(nil).Twice()

		svc := newTestServiceWithStore(new(MockContactDirectory), dispatcher, store)
		_, err := svc.ResendFailed(ctx, "BC-1")
		require.NoError(t, err)
		_, err = svc.ResendFailed(ctx, "BC-1")
		require.NoError(t, err)
		require.Len(t, keys, 2)
		assert.Equal(t, keys[0], keys[1])
	})

	t.Run("no failed recipients", func(t *testing.T) {
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "BC-2").Return(&domain.BroadcastRecord{
			ID: "BC-2", Message: "Hi", Status: domain.BroadcastStatusSent, FailedRecipients: []string{" ", ""},
		}, nil).Once()
		dispatcher := new(MockDispatcher)

		svc := newTestServiceWithStore(new(MockContactDirectory), dispatcher, store)
		_, err := svc.ResendFailed(ctx, "BC-2")
		assert.ErrorIs(t, err, domain.ErrNoFailedRecipients)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("failed recipients all invalid", func(t *testing.T) {
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "BC-3").Return(&domain.BroadcastRecord{
			ID: "BC-3", Message: "Hi", FailedRecipients: []string{"123"},
		}, nil).Once()
		dispatcher := new(MockDispatcher)

		svc := newTestServiceWithStore(new(MockContactDirectory), dispatcher, store)
		res, err := svc.ResendFailed(ctx, "BC-3")
		require.ErrorIs(t, err, domain.ErrNoValidRecipients)
		assert.Equal(t, []string{"123"}, res.Validation.InvalidEntries)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("unknown broadcast", func(t *testing.T) {
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "nope").Return(nil, domain.ErrBroadcastNotFound).Once()

		svc := newTestServiceWithStore(new(MockContactDirectory), new(MockDispatcher), store)
		_, err := svc.ResendFailed(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrBroadcastNotFound)
	})

	t.Run("stored message empty", func(t *testing.T) {
		store := new(MockStatusStore)
		store.On("GetBroadcast", ctx, "BC-4").Return(&domain.BroadcastRecord{
			ID: "BC-4", FailedRecipients: []string{"254700000002"},
		}, nil).Once()

		svc := newTestServiceWithStore(new(MockContactDirectory), new(MockDispatcher), store)
		_, err := svc.ResendFailed(ctx, "BC-4")
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	})
}
