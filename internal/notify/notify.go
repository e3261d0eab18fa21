// Package notify delivers run-completion notifications to external
// channels. Delivery is best effort; a failed send never fails the run
// that triggered it.
package notify

type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification is one outbound message. TaskID, when set, lets the
// channel link the message back to the bulk task that produced it.
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	TaskID  string
}

type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier fans a notification out to every configured channel.
// All channels are attempted even when an earlier one fails; the last
// error is surfaced so the caller can log it.
type MultiNotifier struct {
	targets []Notifier
}

func NewMultiNotifier(targets ...Notifier) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, target := range m.targets {
		if err := target.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier swallows every notification. Used when no channel is
// configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(Notification) error { return nil }
