package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consents/internal/audit"
	"consents/internal/consent/metrics"
	"consents/internal/consent/models"
	"consents/internal/consent/service/mocks"
	"consents/internal/consent/store"
	"consents/internal/platform/middleware"
	"consents/internal/sentinel"
	dErrors "consents/pkg/domain-errors"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	sink    *audit.MemorySink
	metrics *metrics.Metrics
	now     time.Time
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.sink = audit.NewMemorySink()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = fixedNow
	s.service = New(s.store,
		WithAuditor(audit.NewPublisher(s.sink)),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	)
}

func createRequest() *models.CreateRequest {
	return &models.CreateRequest{
		UserID:      "user-1",
		Permissions: []models.Permission{models.PermissionReadData, models.PermissionWriteData},
		Status:      models.StatusAwaitingAuthorisation,
	}
}

func (s *ServiceSuite) TestCreate() {
	res, err := s.service.Create(context.Background(), createRequest())
	s.Require().NoError(err)

	c := res.Consent
	s.Equal("consent-1", c.FormattedID())
	s.Equal("user-1", c.UserID)
	s.Equal(models.StatusAwaitingAuthorisation, c.Status)
	s.Equal(fixedNow.Truncate(time.Second), c.CreatedAt)
	s.Equal(c.CreatedAt, c.UpdatedAt)
	s.Equal(c.CreatedAt, res.RequestedAt)

	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ConsentsCreated.WithLabelValues("READ_DATA")))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ConsentsCreated.WithLabelValues("WRITE_DATA")))
}

func (s *ServiceSuite) TestCreateRejectsNonInitialStatus() {
	for _, status := range []models.Status{models.StatusAuthorised, models.StatusRejected} {
		req := createRequest()
		req.Status = status

		_, err := s.service.Create(context.Background(), req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal([]string{models.MessageInvalidInitialStatus}, de.Details)
	}
	s.Zero(s.sink.Len(), "rejected creates emit nothing")
}

func (s *ServiceSuite) TestCreateDoesNotAliasRequest() {
	req := createRequest()
	res, err := s.service.Create(context.Background(), req)
	s.Require().NoError(err)

	req.Permissions[0] = models.PermissionDeleteData
	s.Equal(models.PermissionReadData, res.Consent.Permissions[0])
}

func (s *ServiceSuite) TestRetrieve() {
	created, err := s.service.Create(context.Background(), createRequest())
	s.Require().NoError(err)

	s.now = fixedNow.Add(time.Minute)
	res, err := s.service.Retrieve(context.Background(), created.Consent.ID)
	s.Require().NoError(err)
	s.Equal(created.Consent.Permissions, res.Consent.Permissions)
	s.Equal(fixedNow.Add(time.Minute).Truncate(time.Second), res.RequestedAt)
}

func (s *ServiceSuite) TestRetrieveNotFound() {
	_, err := s.service.Retrieve(context.Background(), 99)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(models.MessageConsentNotFound, err.Error())
}

func (s *ServiceSuite) TestUpdate() {
	created, err := s.service.Create(context.Background(), createRequest())
	s.Require().NoError(err)

	s.now = fixedNow.Add(2 * time.Hour)
	res, err := s.service.Update(context.Background(), created.Consent.ID, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionDeleteData},
		Status:      models.StatusAuthorised,
	})
	s.Require().NoError(err)

	s.Equal(models.StatusAuthorised, res.Consent.Status)
	s.Equal([]models.Permission{models.PermissionDeleteData}, res.Consent.Permissions)
	s.Equal(created.Consent.CreatedAt, res.Consent.CreatedAt)
	s.True(res.Consent.UpdatedAt.After(res.Consent.CreatedAt))

	stored, err := s.service.Retrieve(context.Background(), created.Consent.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAuthorised, stored.Consent.Status)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ConsentsUpdated.WithLabelValues("AUTHORISED")))
}

func (s *ServiceSuite) TestUpdateRejectsAwaitingAuthorisation() {
	created, err := s.service.Create(context.Background(), createRequest())
	s.Require().NoError(err)

	_, err = s.service.Update(context.Background(), created.Consent.ID, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionReadData},
		Status:      models.StatusAwaitingAuthorisation,
	})
	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal(dErrors.CodeValidation, de.Code)
	s.Equal([]string{models.MessageInvalidUpdateStatus}, de.Details)
}

func (s *ServiceSuite) TestUpdateStatusCheckedBeforeLookup() {
	_, err := s.service.Update(context.Background(), 42, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionReadData},
		Status:      models.StatusAwaitingAuthorisation,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestUpdateNotFound() {
	_, err := s.service.Update(context.Background(), 42, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionReadData},
		Status:      models.StatusRejected,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRevoke() {
	created, err := s.service.Create(context.Background(), createRequest())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Revoke(context.Background(), created.Consent.ID))

	_, err = s.service.Retrieve(context.Background(), created.Consent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Revoke(context.Background(), created.Consent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "second revoke reports not found")
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ConsentsRevoked))
}

func (s *ServiceSuite) TestLifecycleEmitsEvents() {
	ctx := middleware.WithRequestID(context.Background(), "req-123")

	created, err := s.service.Create(ctx, createRequest())
	s.Require().NoError(err)
	id := created.Consent.ID

	_, err = s.service.Update(ctx, id, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionReadData},
		Status:      models.StatusAuthorised,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Revoke(ctx, id))

	events := s.sink.ListByConsent("consent-1")
	s.Require().Len(events, 3)
	s.Equal(models.AuditActionConsentCreated, events[0].Action)
	s.Equal(models.AuditActionConsentUpdated, events[1].Action)
	s.Equal(models.AuditActionConsentRevoked, events[2].Action)
	s.Equal("AUTHORISED", events[1].Status)
	s.Equal([]string{"READ_DATA"}, events[1].Permissions)
	for _, e := range events {
		s.Equal("req-123", e.RequestID)
		s.Equal("user-1", e.UserID)
	}
}

type brokenSink struct{}

func (brokenSink) Append(context.Context, audit.Event) error { return errors.New("broker unavailable") }

func (s *ServiceSuite) TestEventFailureDoesNotFailRequest() {
	svc := New(store.NewInMemory(), WithAuditor(audit.NewPublisher(brokenSink{})))

	res, err := svc.Create(context.Background(), createRequest())
	s.Require().NoError(err)
	s.Equal(int64(1), res.Consent.ID)
}

func TestStoreErrorMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	svc := New(mockStore)
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("create failure is internal", func(t *testing.T) {
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)
		_, err := svc.Create(ctx, createRequest())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("find failure is internal", func(t *testing.T) {
		mockStore.EXPECT().FindByID(gomock.Any(), int64(7)).Return(nil, boom)
		_, err := svc.Retrieve(ctx, 7)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("wrapped not found maps to 404 code", func(t *testing.T) {
		mockStore.EXPECT().FindByID(gomock.Any(), int64(8)).
			Return(nil, errors.Join(sentinel.ErrNotFound, errors.New("no rows")))
		_, err := svc.Retrieve(ctx, 8)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("update race with delete maps to not found", func(t *testing.T) {
		mockStore.EXPECT().FindByID(gomock.Any(), int64(9)).Return(&models.Consent{ID: 9, UserID: "user-1"}, nil)
		mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrNotFound)
		_, err := svc.Update(ctx, 9, &models.UpdateRequest{
			Permissions: []models.Permission{models.PermissionReadData},
			Status:      models.StatusRejected,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("rejected row maps to validation code", func(t *testing.T) {
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(errors.Join(errors.New("create consent"), sentinel.ErrInvalidInput))
		_, err := svc.Create(ctx, createRequest())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("delete failure is internal", func(t *testing.T) {
		mockStore.EXPECT().FindByID(gomock.Any(), int64(10)).Return(&models.Consent{ID: 10}, nil)
		mockStore.EXPECT().Delete(gomock.Any(), int64(10)).Return(boom)
		err := svc.Revoke(ctx, 10)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

type recordingTx struct {
	store Store
	runs  int
	err   error
}

func (r *recordingTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	r.runs++
	if r.err != nil {
		return r.err
	}
	return fn(ctx, r.store)
}

func TestWritesRunInsideTransaction(t *testing.T) {
	st := store.NewInMemory()
	tx := &recordingTx{store: st}
	svc := New(st, WithTx(tx))
	ctx := context.Background()

	created, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.Consent.ID, &models.UpdateRequest{
		Permissions: []models.Permission{models.PermissionReadData},
		Status:      models.StatusAuthorised,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, created.Consent.ID))
	assert.Equal(t, 2, tx.runs)

	tx.err = errors.New("begin tx: connection refused")
	err = svc.Revoke(ctx, created.Consent.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
