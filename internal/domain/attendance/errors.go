package attendance

import "errors"

var (
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrNoCheckInToday   = errors.New("no check-in recorded today")
	ErrRecordNotFound   = errors.New("attendance record not found")
	ErrInvalidStatus    = errors.New("invalid attendance status")
)
