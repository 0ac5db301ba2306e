package tools

import (
	"time"

	"github.com/google/uuid"
)

func currentTime() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }
