package services

import (
	"context"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

func (s *SummaryFunctionSuite) TestObjectEventRendersSourceDocument() {
	s.putFixture("applications/app.json", "application.json", "application/json")

	err := s.fn.HandleObjectEvent(context.Background(), models.GCSEvent{Bucket: testBucket, Name: "applications/app.json"})
	s.Require().NoError(err)

	s.Contains(s.store.Keys(testBucket), "23-700001/application-summary.pdf")
	s.Len(s.notifications(), 1)
	s.Equal(models.StatusAcked, s.tracker.last().Status)
}

func (s *SummaryFunctionSuite) TestObjectEventIgnoresOtherObjects() {
	s.putFixture("app-split.json", "application.json", "application/json")

	for _, e := range []models.GCSEvent{
		{Bucket: testBucket, Name: "23-700001/application-summary.pdf"},
		{Bucket: testBucket, Name: "app-split.json"},
		{Bucket: "another-bucket", Name: "app.json"},
	} {
		s.Require().NoError(s.fn.HandleObjectEvent(context.Background(), e), e.Name)
	}
	s.Equal([]string{"app-split.json"}, s.store.Keys(testBucket))
	s.Empty(s.tracker.statuses())
}

func (s *SummaryFunctionSuite) TestObjectEventReturnsFailures() {
	err := s.fn.HandleObjectEvent(context.Background(), models.GCSEvent{Bucket: testBucket, Name: "missing.json"})
	var fetchErr *FetchError
	s.ErrorAs(err, &fetchErr)
}
