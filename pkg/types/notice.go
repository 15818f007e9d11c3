package types

// NoticeLevel grades user-facing notices surfaced on storefront responses.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-blocking message for the storefront UI, e.g. a stock
// correction after a cart sync. Notices never replace an error response.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func InfoNotice(message string) Notice {
	return Notice{Level: NoticeInfo, Message: message}
}

func WarningNotice(message string) Notice {
	return Notice{Level: NoticeWarning, Message: message}
}

func ErrorNotice(message string) Notice {
	return Notice{Level: NoticeError, Message: message}
}
