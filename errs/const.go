package errs

import "github.com/fixkme/ticktimer/util/errs"

const (
	ErrCode_OK              = 0
	ErrCode_Unknown         = errs.ErrCode_Unknown
	ErrCode_Callback        = 100
	ErrCode_Closed          = 101
	ErrCode_HashExhausted   = 102
	ErrCode_InvalidArgument = 103
	ErrCode_NotFound        = 104
)

var (
	Unknown         = errs.CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	Callback        = errs.CreateCodeError(ErrCode_Callback, "CALLBACK")
	Closed          = errs.CreateCodeError(ErrCode_Closed, "CLOSED")
	HashExhausted   = errs.CreateCodeError(ErrCode_HashExhausted, "HASH_EXHAUSTED")
	InvalidArgument = errs.CreateCodeError(ErrCode_InvalidArgument, "INVALID_ARGUMENT")
	NotFound        = errs.CreateCodeError(ErrCode_NotFound, "NOT_FOUND")
)
