package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/service/mocks"
)

type PublishServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	news      *mocks.MockNewsStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockEventPublisher

	service *PublishService
}

func (s *PublishServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.news = mocks.NewMockNewsStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)

	s.service = NewPublishService(s.news, s.txManager, s.publisher, testLogger())
}

func (s *PublishServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPublishServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PublishServiceTestSuite))
}

func (s *PublishServiceTestSuite) TestPublishDue() {
	ctx := context.Background()

	due := []domain.News{
		{ID: 1, Title: "First"},
		{ID: 2, Title: "Second"},
	}

	s.news.EXPECT().FindDueScheduled(gomock.Any(), gomock.Any()).Return(due, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.news.EXPECT().MarkPublished(gomock.Any(), []int64{1, 2}, gomock.Any()).Return(nil)

	var published []int64
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), "published").DoAndReturn(
		func(_ context.Context, news *domain.News, _ string) error {
			s.True(news.IsPublished)
			s.NotNil(news.PublishDate)
			published = append(published, news.ID)
			return nil
		},
	).Times(2)

	count, err := s.service.PublishDue(ctx)

	s.NoError(err)
	s.Equal(2, count)
	s.Equal([]int64{1, 2}, published)
}

func (s *PublishServiceTestSuite) TestPublishDue_NothingDue() {
	s.news.EXPECT().FindDueScheduled(gomock.Any(), gomock.Any()).Return(nil, nil)

	count, err := s.service.PublishDue(context.Background())

	s.NoError(err)
	s.Equal(0, count)
}

func (s *PublishServiceTestSuite) TestPublishDue_TxErrorAbortsEvents() {
	due := []domain.News{{ID: 1}}

	s.news.EXPECT().FindDueScheduled(gomock.Any(), gomock.Any()).Return(due, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).
		Return(errors.New("deadlock"))

	count, err := s.service.PublishDue(context.Background())

	s.Error(err)
	s.Equal(0, count)
}

func (s *PublishServiceTestSuite) TestPublishDue_EventFailureIsNotFatal() {
	due := []domain.News{{ID: 1}}

	s.news.EXPECT().FindDueScheduled(gomock.Any(), gomock.Any()).Return(due, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.news.EXPECT().MarkPublished(gomock.Any(), []int64{1}, gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), "published").
		Return(errors.New("broker down"))

	count, err := s.service.PublishDue(context.Background())

	s.NoError(err)
	s.Equal(1, count)
}
