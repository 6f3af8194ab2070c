package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/models"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESNotifier_NotifyLockout(t *testing.T) {
	client := &fakeSES{}
	n := NewSESNotifierWithClient(client, "no-reply@clinic.test", discardLogger())
	until := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)

	require.NoError(t, n.NotifyLockout(context.Background(), "alice@clinic.test", "alice", until))

	require.NotNil(t, client.input)
	assert.Equal(t, "no-reply@clinic.test", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"alice@clinic.test"}, client.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), "2026-03-01 09:15 UTC")
	assert.Contains(t, aws.ToString(client.input.Message.Body.Html.Data), "Hello alice")
}

func TestSESNotifier_SendError(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	n := NewSESNotifierWithClient(client, "no-reply@clinic.test", discardLogger())

	err := n.NotifyLockout(context.Background(), "alice@clinic.test", "alice", time.Now())
	assert.ErrorIs(t, err, client.err)
}

func TestAuthService_LockoutNoticeSkippedWithoutEmail(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	for i := 0; i < 5; i++ {
		_, _ = login(f, "alice", "wrong-password")
	}
	_, _ = login(f, "alice", testPassword)
	f.svc.WaitNotifications()

	assert.Empty(t, f.notifier.sent())
}

func TestAuthService_LockoutNoticeFailureDoesNotChangeOutcome(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	alice := f.userWithPassword(t, "user-1", "alice", testPassword)
	alice.Email = strPtr("alice@clinic.test")
	*f.users = *usersByName(alice)
	f.notifier.err = errors.New("smtp down")

	for i := 0; i < 5; i++ {
		_, _ = login(f, "alice", "wrong-password")
	}
	_, err := login(f, "alice", testPassword)
	f.svc.WaitNotifications()

	assert.ErrorIs(t, err, models.ErrRateLimited)
}
