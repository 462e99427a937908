package messages

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

type recordingNotifier struct {
	received []string
}

func (r *recordingNotifier) ContactMessageReceived(_ context.Context, _ uuid.UUID, senderName string) error {
	r.received = append(r.received, senderName)
	return nil
}

type recordingMailer struct {
	replies []string
	fail    error
}

func (r *recordingMailer) SendContactReply(_ context.Context, to, _, _, _ string) error {
	if r.fail != nil {
		return r.fail
	}
	r.replies = append(r.replies, to)
	return nil
}

func setupMessageTest(t *testing.T) (Service, *recordingNotifier, *recordingMailer) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  read_at DATETIME,
  reply_message TEXT,
  replied_at DATETIME,
  replied_by TEXT,
  created_at DATETIME
);`).Error)

	notif := &recordingNotifier{}
	mail := &recordingMailer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), notif, mail, logg)
	require.NoError(t, err)
	return svc, notif, mail
}

func contactInput() CreateInput {
	return CreateInput{
		Name:    "Sara Khan",
		Email:   "Sara.Khan@Example.com",
		Subject: "Bulk order query",
		Body:    "Do you offer discounts on class sets?",
	}
}

func TestCreateNotifiesAdmins(t *testing.T) {
	svc, notif, _ := setupMessageTest(t)

	dto, err := svc.Create(context.Background(), contactInput())
	require.NoError(t, err)
	assert.Equal(t, "sara.khan@example.com", dto.Email)
	assert.Equal(t, []string{"Sara Khan"}, notif.received)
}

func TestCreateRejectsBlankFields(t *testing.T) {
	svc, _, _ := setupMessageTest(t)

	input := contactInput()
	input.Subject = "   "
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestReplyOnceAndEmailSender(t *testing.T) {
	svc, _, mail := setupMessageTest(t)
	ctx := context.Background()
	adminID := uuid.New()

	dto, err := svc.Create(ctx, contactInput())
	require.NoError(t, err)

	replied, err := svc.Reply(ctx, dto.ID, adminID, "Yes, 10% on 20+ copies.")
	require.NoError(t, err)
	require.NotNil(t, replied.RepliedAt)
	require.NotNil(t, replied.ReadAt)
	assert.Equal(t, &adminID, replied.RepliedBy)
	assert.Equal(t, []string{"sara.khan@example.com"}, mail.replies)

	_, err = svc.Reply(ctx, dto.ID, adminID, "Second reply")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestReplyPersistsWhenEmailFails(t *testing.T) {
	svc, _, mail := setupMessageTest(t)
	ctx := context.Background()
	mail.fail = assert.AnError

	dto, err := svc.Create(ctx, contactInput())
	require.NoError(t, err)

	replied, err := svc.Reply(ctx, dto.ID, uuid.New(), "We will call you.")
	require.NoError(t, err)
	assert.NotNil(t, replied.RepliedAt)

	fetched, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.NotNil(t, fetched.RepliedAt)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, _, _ := setupMessageTest(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, contactInput())
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, dto.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkRead(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReadAt.Unix(), second.ReadAt.Unix())
}

func TestListFiltersUnreplied(t *testing.T) {
	svc, _, _ := setupMessageTest(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, contactInput())
	require.NoError(t, err)
	second := contactInput()
	second.Subject = "Another question"
	_, err = svc.Create(ctx, second)
	require.NoError(t, err)

	_, err = svc.Reply(ctx, first.ID, uuid.New(), "Answered.")
	require.NoError(t, err)

	unreplied, err := svc.List(ctx, pagination.Params{}, ListFilters{UnrepliedOnly: true})
	require.NoError(t, err)
	require.Len(t, unreplied.Messages, 1)
	assert.Equal(t, "Another question", unreplied.Messages[0].Subject)
}

func TestDeleteMissingMessage(t *testing.T) {
	svc, _, _ := setupMessageTest(t)

	err := svc.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
