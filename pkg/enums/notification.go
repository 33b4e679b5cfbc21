package enums

// NotificationStatus tracks whether a notification was seen.
type NotificationStatus int16

const (
	NotificationStatusUnread NotificationStatus = 1
	NotificationStatusRead   NotificationStatus = 2
)

// NotificationKind labels what produced a generated notification.
type NotificationKind string

const (
	NotificationKindLastAccess  NotificationKind = "last_access"
	NotificationKindStaleAgent  NotificationKind = "stale_agent"
	NotificationKindStaleSpace  NotificationKind = "stale_space"
	NotificationKindSealExpired NotificationKind = "seal_expired"
	NotificationKindSealExpires NotificationKind = "seal_expires"
)
