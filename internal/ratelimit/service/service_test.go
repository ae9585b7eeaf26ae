package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"healthgate/internal/ratelimit/config"
	"healthgate/internal/ratelimit/models"
	"healthgate/internal/ratelimit/service/mocks"
	"healthgate/internal/ratelimit/store/counter"
	dErrors "healthgate/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockTiers *mocks.MockTierResolver
	store     *counter.InMemoryStore
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockTiers = mocks.NewMockTierResolver(s.ctrl)
	s.store = counter.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(s.store,
		WithLogger(logger),
		WithTierResolver(s.mockTiers),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestAuthBucketBurst() {
	// Bucket "auth" is configured {limit:5, window:15m}: five attempts from
	// the same IP pass the quota layer, the sixth is rejected with a
	// retry-after no longer than the window.
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result, err := s.service.CheckAndConsume(ctx, models.BucketAuth, "198.51.100.1")
		s.Require().NoError(err)
		s.True(result.Allowed, "attempt %d should be allowed", i)
		s.Equal(5-i, result.Remaining)
	}

	result, err := s.service.CheckAndConsume(ctx, models.BucketAuth, "198.51.100.1")
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Zero(result.Remaining)
	s.Positive(result.RetryAfter)
	s.LessOrEqual(result.RetryAfter, int((15 * time.Minute).Seconds()))
}

func (s *ServiceSuite) TestDistinctIdentitiesDoNotInterfere() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.service.CheckAndConsume(ctx, models.BucketAuth, "198.51.100.1")
		s.Require().NoError(err)
	}

	result, err := s.service.CheckAndConsume(ctx, models.BucketAuth, "203.0.113.9")
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(4, result.Remaining)
}

func (s *ServiceSuite) TestDynamicTierDivergence() {
	// A premium subject (max 500) is still allowed at position 101 where a
	// default subject (max 100) has already been rejected.
	ctx := context.Background()

	s.mockTiers.EXPECT().ResolveTier(gomock.Any(), "subject-default").Return(models.TierDefault, nil).Times(101)
	s.mockTiers.EXPECT().ResolveTier(gomock.Any(), "subject-premium").Return(models.TierPremium, nil).Times(101)

	var defaultResult, premiumResult *models.Result
	for i := 0; i < 101; i++ {
		var err error
		defaultResult, err = s.service.CheckDynamic(ctx, "subject-default")
		s.Require().NoError(err)
		premiumResult, err = s.service.CheckDynamic(ctx, "subject-premium")
		s.Require().NoError(err)
	}

	s.False(defaultResult.Allowed)
	s.Equal(100, defaultResult.Limit)
	s.True(premiumResult.Allowed)
	s.Equal(500, premiumResult.Limit)
	s.Equal(500-101, premiumResult.Remaining)
}

func (s *ServiceSuite) TestDynamicTierLookupFailureFallsBackToDefault() {
	ctx := context.Background()

	s.mockTiers.EXPECT().ResolveTier(gomock.Any(), "subject-x").Return(models.Tier(""), errors.New("tier service down"))

	result, err := s.service.CheckDynamic(ctx, "subject-x")
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(100, result.Limit)
}

func (s *ServiceSuite) TestDynamicAnonymousUsesDefaultTier() {
	// No resolver call for anonymous identities.
	result, err := s.service.CheckDynamic(context.Background(), models.IdentityAnonymous)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(100, result.Limit)
}

func (s *ServiceSuite) TestDenialRecorderInvoked() {
	ctx := context.Background()
	recorder := mocks.NewMockDenialRecorder(s.ctrl)
	svc, err := New(s.store, WithDenialRecorder(recorder))
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		_, err := svc.CheckAndConsume(ctx, models.BucketAuth, "198.51.100.1")
		s.Require().NoError(err)
	}

	recorder.EXPECT().RecordDenial(gomock.Any(), models.BucketAuth, "198.51.100.1", 5)
	result, err := svc.CheckAndConsume(ctx, models.BucketAuth, "198.51.100.1")
	s.Require().NoError(err)
	s.False(result.Allowed)
}

func (s *ServiceSuite) TestUnknownBucketIsAnInvariantViolation() {
	_, err := s.service.CheckAndConsume(context.Background(), models.Bucket("bogus"), "x")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

type OutageSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockCounterStore
}

func (s *OutageSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockCounterStore(s.ctrl)
}

func (s *OutageSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestOutageSuite(t *testing.T) {
	suite.Run(t, new(OutageSuite))
}

func (s *OutageSuite) storeDown() {
	s.mockStore.EXPECT().
		Increment(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(0), time.Duration(0), dErrors.New(dErrors.CodeStoreUnavailable, "connection refused"))
}

func (s *OutageSuite) TestFailOpenAllows() {
	s.storeDown()
	svc, err := New(s.mockStore)
	s.Require().NoError(err)

	result, err := svc.CheckAndConsume(context.Background(), models.BucketGeneral, "198.51.100.1")
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.True(result.Degraded)
}

func (s *OutageSuite) TestFailOpenBoundedByLocalThrottle() {
	s.storeDown()
	throttle := mocks.NewMockLocalThrottle(s.ctrl)
	throttle.EXPECT().Allow().Return(false)

	svc, err := New(s.mockStore, WithLocalThrottle(throttle))
	s.Require().NoError(err)

	result, err := svc.CheckAndConsume(context.Background(), models.BucketGeneral, "198.51.100.1")
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.Degraded)
	s.Equal(1, result.RetryAfter)
}

func (s *OutageSuite) TestFailClosedRejects() {
	s.storeDown()
	cfg := config.DefaultConfig()
	cfg.OutagePolicy = config.PolicyFailClosed

	svc, err := New(s.mockStore, WithConfig(cfg))
	s.Require().NoError(err)

	result, err := svc.CheckAndConsume(context.Background(), models.BucketGeneral, "198.51.100.1")
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.Degraded)
	s.Positive(result.RetryAfter)
}
