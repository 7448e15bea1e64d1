package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TransitionsTestSuite struct {
	suite.Suite
}

func TestTransitionsSuite(t *testing.T) {
	suite.Run(t, new(TransitionsTestSuite))
}

// TestCanTransition проверяет всю сетку переходов 5x5.
func (s *TransitionsTestSuite) TestCanTransition() {
	allowed := map[[2]OrderStatusType]bool{
		{OrderStatusPending, OrderStatusProcessing}:   true,
		{OrderStatusProcessing, OrderStatusReady}:     true,
		{OrderStatusReady, OrderStatusCompleted}:      true,
		{OrderStatusPending, OrderStatusCancelled}:    true,
		{OrderStatusProcessing, OrderStatusCancelled}: true,
		{OrderStatusReady, OrderStatusCancelled}:      true,
	}

	for _, from := range OrderStatuses {
		for _, to := range OrderStatuses {
			s.Run(string(from)+"->"+string(to), func() {
				s.Equal(allowed[[2]OrderStatusType{from, to}], CanTransition(from, to))
			})
		}
	}
}

func (s *TransitionsTestSuite) TestTerminalStatuses() {
	for _, status := range OrderStatuses {
		s.Equal(len(NextStatuses(status)) == 0, status.IsTerminal(), string(status))
	}
	s.False(CanTransition(OrderStatusType("unknown"), OrderStatusPending))
}

func (s *TransitionsTestSuite) TestErrorsMatching() {
	err := NewInvalidTransitionError(OrderStatusReady, OrderStatusPending)
	s.Require().ErrorIs(err, ErrInvalidTransition)

	var trErr *InvalidTransitionError
	s.Require().ErrorAs(err, &trErr)
	s.Equal(OrderStatusReady, trErr.From)

	s.Require().ErrorIs(NewValidationError("amount", "must be positive"), ErrValidation)

	partial := &PartialUploadError{Failed: []FailedUpload{
		{FileName: "b.pdf", Key: "k1", Err: errors.New("boom")},
		{FileName: "a.pdf", Key: "k2", Err: errors.New("boom")},
		{FileName: "a.pdf", Key: "k3", Err: errors.New("boom")},
	}}
	s.Equal([]string{"a.pdf", "a.pdf", "b.pdf"}, partial.FailedFiles())
	s.Equal("failed to upload 3 file(s): a.pdf, a.pdf, b.pdf", partial.Error())
}
