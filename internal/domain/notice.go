package domain

// NoticeLevel distinguishes informational notices from failures.
type NoticeLevel string

const (
	NoticeInfo        NoticeLevel = "default"
	NoticeDestructive NoticeLevel = "destructive"
)

// Notice is a transient user-visible notification (a toast in the SPA).
type Notice struct {
	Level       NoticeLevel `json:"variant"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}
