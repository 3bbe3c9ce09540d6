package service

import (
	"context"
	"errors"

	"chunkstore/pkg/app"
	"chunkstore/pkg/chunkstore"
	"chunkstore/pkg/journal"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus 把存储层错误映射为 gRPC 状态码
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, chunkstore.ErrInvalidPath):
		return codes.InvalidArgument
	case errors.Is(err, chunkstore.ErrNotFound), errors.Is(err, journal.ErrBatchNotFound):
		return codes.NotFound
	case errors.Is(err, chunkstore.ErrExclusiveCreateConflict):
		return codes.AlreadyExists
	case errors.Is(err, chunkstore.ErrConnection):
		return codes.Unavailable
	case errors.Is(err, app.ErrJournalDisabled):
		return codes.FailedPrecondition
	case errors.Is(err, journal.ErrConcurrentUpdate):
		return codes.Aborted
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
