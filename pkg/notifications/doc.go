// Package notifications stores in-app notification records and pushes them
// to connected clients.
//
// Each record belongs to exactly one recipient and carries the id of the
// source notification it was fanned out from, so a read tracked against the
// source can be applied to the recipient's copy.
//
//   - Storage persists records; MemoryStorage serves tests and development
//   - Deliverer pushes stored records in real time; RedisDeliverer publishes
//     JSON on "notifications:<userID>"
//   - Manager persists first and delivers best effort
//
// # Usage
//
//	manager := notifications.NewManager(
//	    notifications.NewMemoryStorage(),
//	    notifications.NewRedisDeliverer(redisClient),
//	    notifications.WithConcurrency(8),
//	)
//
//	records, err := manager.SendToUsers(ctx, []int64{7, 9}, notifications.Notification{
//	    NotificationID: scheduledID,
//	    EventType:      "announcement.published",
//	    Type:           notifications.TypeAnnouncement,
//	    Title:          "Release 2.0",
//	})
//
// SendToUsers persists recipients concurrently. A failure for one recipient
// does not stop the others; the stored records are returned along with the
// joined errors.
//
// Expired records are hidden from List and CountUnread and removed by
// Manager.DeleteExpired.
package notifications
