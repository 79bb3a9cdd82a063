package consts

import "time"

const (
	DBCtxTimeout  = 5 * time.Second
	MaxUploadSize = 10 << 20
)
