package audit

import "errors"

var (
	ErrStoreClosed = errors.New("audit.store_closed")
	ErrEmptyAction = errors.New("audit.empty_action")
)
