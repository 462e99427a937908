package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

func setupNotificationTest(t *testing.T) Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  order_id TEXT,
  message_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestOrderPlacedFansOutToAdminFeed(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.OrderPlaced(ctx, userID, uuid.New(), "A1B2"))

	mine, err := svc.ListMine(ctx, userID, pagination.Params{}, false)
	require.NoError(t, err)
	require.Len(t, mine.Notifications, 1)
	assert.Contains(t, mine.Notifications[0].Message, "A1B2")

	admin, err := svc.ListAdminFeed(ctx, pagination.Params{}, false)
	require.NoError(t, err)
	require.Len(t, admin.Notifications, 1)
	assert.Contains(t, admin.Notifications[0].Message, "A1B2")
}

func TestMarkReadScopesToOwner(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.PaymentReceived(ctx, userID, uuid.New(), "Z9Z9"))
	mine, err := svc.ListMine(ctx, userID, pagination.Params{}, true)
	require.NoError(t, err)
	require.Len(t, mine.Notifications, 1)
	id := mine.Notifications[0].ID

	err = svc.MarkRead(ctx, id, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	require.NoError(t, svc.MarkRead(ctx, id, userID))

	// Second mark finds nothing unread.
	err = svc.MarkRead(ctx, id, userID)
	require.Error(t, err)

	unread, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)
}

func TestMarkAllRead(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.PaymentReceived(ctx, userID, uuid.New(), "AAAA"))
	require.NoError(t, svc.PaymentReceived(ctx, userID, uuid.New(), "BBBB"))

	marked, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	unreadOnly, err := svc.ListMine(ctx, userID, pagination.Params{}, true)
	require.NoError(t, err)
	assert.Empty(t, unreadOnly.Notifications)
}

func TestContactMessageGoesToAdminFeedOnly(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()

	require.NoError(t, svc.ContactMessageReceived(ctx, uuid.New(), "Ali Raza"))

	admin, err := svc.ListAdminFeed(ctx, pagination.Params{}, true)
	require.NoError(t, err)
	require.Len(t, admin.Notifications, 1)
	assert.Contains(t, admin.Notifications[0].Message, "Ali Raza")

	require.NoError(t, svc.MarkAdminRead(ctx, admin.Notifications[0].ID))
	require.NoError(t, svc.Delete(ctx, admin.Notifications[0].ID))

	err = svc.Delete(ctx, admin.Notifications[0].ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
