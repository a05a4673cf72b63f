package watch

import "errors"

var (
	ErrNoPaths     = errors.New("no paths to watch")
	ErrNilNotifier = errors.New("notifier is nil")
)
