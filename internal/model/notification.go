package model

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message shown once after a redirect.
type Notification struct {
	Kind    NotificationKind
	Message string
}
