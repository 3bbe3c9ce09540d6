package server

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Interceptors 为 gRPC 服务端提供日志和 panic 恢复
type Interceptors struct {
	log *logrus.Entry
}

func NewInterceptors(log *logrus.Entry) *Interceptors {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Interceptors{log: log.WithField("component", "grpc")}
}

// ServerOptions 按 recovery -> logging 的顺序串联拦截器
func (i *Interceptors) ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(i.UnaryRecovery, i.UnaryLogging),
		grpc.ChainStreamInterceptor(i.StreamRecovery, i.StreamLogging),
	}
}

// =============================================================================
// 1. Logging Interceptor (结构化日志)
// =============================================================================

func (i *Interceptors) UnaryLogging(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	i.logRPC("unary", info.FullMethod, time.Since(start), err)
	return resp, err
}

func (i *Interceptors) StreamLogging(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	i.logRPC("stream", info.FullMethod, time.Since(start), err)
	return err
}

// logRPC 统一的日志打印逻辑
// 客户端错误记为 Warn，服务端错误记为 Error
func (i *Interceptors) logRPC(kind, method string, duration time.Duration, err error) {
	code := status.Code(err)

	entry := i.log.WithFields(logrus.Fields{
		"kind":   kind,
		"method": method,
		"code":   code.String(),
		"dur":    duration,
	})
	if err != nil {
		entry = entry.WithError(err)
	}

	switch code {
	case codes.OK:
		entry.Info("gRPC request")
	case codes.Internal, codes.Unknown, codes.DataLoss:
		entry.Error("gRPC request")
	default:
		entry.Warn("gRPC request")
	}
}

// =============================================================================
// 2. Recovery Interceptor
// =============================================================================

func (i *Interceptors) UnaryRecovery(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = i.recoverFromPanic(info.FullMethod, r)
		}
	}()
	return handler(ctx, req)
}

func (i *Interceptors) StreamRecovery(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = i.recoverFromPanic(info.FullMethod, r)
		}
	}()
	return handler(srv, ss)
}

func (i *Interceptors) recoverFromPanic(method string, p any) error {
	i.log.WithFields(logrus.Fields{
		"method": method,
		"panic":  p,
		"stack":  string(debug.Stack()),
	}).Error("🔥 PANIC RECOVERED")
	// 返回 Internal 而不是直接断开连接
	return status.Errorf(codes.Internal, "internal server error: panic recovered")
}
