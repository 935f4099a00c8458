package service_test

import (
	"context"
	"errors"
	"testing"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository/mocks"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	args := m.Called(ctx, to, toName, subject, body)
	return args.Error(0)
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores row and mails the user", func(t *testing.T) {
		notes := new(mocks.NotificationRepo)
		profiles := new(mocks.ProfileRepo)
		email := new(MockEmailSender)
		n := service.NewNotifier(notes, profiles, email)

		notes.On("Create", ctx, mock.MatchedBy(func(note *domain.Notification) bool {
			return note.UserID == "owner" && note.Type == domain.NotificationBookingRequest &&
				note.Message == "You have a new booking request for Tent." && note.Payload["booking_id"] == "b1"
		})).Return(nil).Once()
		profiles.On("GetByID", ctx, "owner").Return(&domain.Profile{ID: "owner", Email: "o@example.com", FullName: "Ana"}, nil).Once()
		email.On("Send", ctx, "o@example.com", "Ana", "New booking request", "You have a new booking request for Tent.").Return(nil).Once()

		n.Notify(ctx, "owner", domain.NotificationBookingRequest, map[string]string{"booking_id": "b1", "gear_title": "Tent"})
		notes.AssertExpectations(t)
		email.AssertExpectations(t)
	})

	t.Run("Failures are swallowed", func(t *testing.T) {
		notes := new(mocks.NotificationRepo)
		profiles := new(mocks.ProfileRepo)
		email := new(MockEmailSender)
		n := service.NewNotifier(notes, profiles, email)

		notes.On("Create", ctx, mock.Anything).Return(errors.New("insert failed")).Once()
		profiles.On("GetByID", ctx, "renter").Return(&domain.Profile{ID: "renter", Email: "r@example.com"}, nil).Once()
		email.On("Send", ctx, "r@example.com", "", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		assert.NotPanics(t, func() {
			n.Notify(ctx, "renter", domain.NotificationEscrowReleased, map[string]string{"booking_id": "b1"})
		})
		email.AssertExpectations(t)
	})

	t.Run("No e-mail sender", func(t *testing.T) {
		notes := new(mocks.NotificationRepo)
		profiles := new(mocks.ProfileRepo)
		n := service.NewNotifier(notes, profiles, nil)
		notes.On("Create", ctx, mock.MatchedBy(func(note *domain.Notification) bool {
			return note.Message == "Escrowed funds for your gear were released."
		})).Return(nil).Once()

		n.Notify(ctx, "renter", domain.NotificationEscrowReleased, map[string]string{"booking_id": "b1"})
		notes.AssertExpectations(t)
		profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Empty user is skipped", func(t *testing.T) {
		notes := new(mocks.NotificationRepo)
		n := service.NewNotifier(notes, new(mocks.ProfileRepo), nil)
		n.Notify(ctx, "", domain.NotificationClaimFiled, nil)
		notes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
