package service

import (
	"context"
	"strconv"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
	"chunkstore/pkg/app"
	"chunkstore/pkg/journal"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ChunkService struct {
	chunkrpc.UnimplementedChunkServiceServer
	app *app.App
	log *logrus.Entry
}

func NewChunkService(application *app.App, log *logrus.Entry) *ChunkService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ChunkService{
		app: application,
		log: log.WithField("component", "chunk-service"),
	}
}

// =============================================================================
// 1. GetChunk (Server-Side Streaming)
// =============================================================================

// GetChunk 协议约定：第一帧是 Header (Size)，后续帧是 Data
func (s *ChunkService) GetChunk(req *chunkrpc.GetChunkRequest, stream grpc.ServerStreamingServer[chunkrpc.GetChunkResponse]) error {
	ctx := stream.Context()

	h, err := s.app.Store.GetOne(ctx, req.Path).Await(ctx)
	if err != nil {
		return toStatus(err)
	}
	defer h.Close()

	// --- Step 1: Header ---
	if err := stream.Send(&chunkrpc.GetChunkResponse{Header: &chunkrpc.ChunkHeader{Size: h.Size}}); err != nil {
		return err
	}

	// --- Step 2: Data ---
	sent, err := copyFrames(NewGrpcStreamWriter(stream), h)
	if err != nil {
		return status.Errorf(codes.Internal, "stream chunk %s: %v", req.Path, err)
	}
	if sent != h.Size {
		s.log.WithFields(logrus.Fields{"path": req.Path, "size": h.Size, "sent": sent}).Warn("chunk size changed while streaming")
	}
	return nil
}

// =============================================================================
// 2. AddChunk
// =============================================================================

func (s *ChunkService) AddChunk(ctx context.Context, req *chunkrpc.AddChunkRequest) (*chunkrpc.AddChunkResponse, error) {
	p, err := s.app.Store.AddChunk(ctx, req.Content, req.Folder).Await(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &chunkrpc.AddChunkResponse{Path: p}, nil
}

// =============================================================================
// 3. DeleteChunks / ResumeDeletes
// =============================================================================

// DeleteChunks 失败时返回 Aborted，trailer 里带上日志批次 id 和已删除数量
func (s *ChunkService) DeleteChunks(ctx context.Context, req *chunkrpc.DeleteChunksRequest) (*chunkrpc.DeleteChunksResponse, error) {
	deleted, batch, err := s.app.Delete(ctx, req.Paths)
	if err != nil {
		return nil, s.batchStatus(ctx, deleted, batch, err)
	}
	return &chunkrpc.DeleteChunksResponse{Deleted: int64(deleted)}, nil
}

func (s *ChunkService) ResumeDeletes(ctx context.Context, req *chunkrpc.ResumeDeletesRequest) (*chunkrpc.DeleteChunksResponse, error) {
	id, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid batch id %q", req.BatchID)
	}

	deleted, batch, err := s.app.Resume(ctx, id)
	if err != nil {
		return nil, s.batchStatus(ctx, deleted, batch, err)
	}
	return &chunkrpc.DeleteChunksResponse{Deleted: int64(deleted)}, nil
}

func (s *ChunkService) batchStatus(ctx context.Context, deleted int, batch *journal.PendingBatch, err error) error {
	md := metadata.Pairs(chunkrpc.TrailerDeleted, strconv.Itoa(deleted))
	if batch == nil {
		_ = grpc.SetTrailer(ctx, md)
		return toStatus(err)
	}

	md.Append(chunkrpc.TrailerBatchID, batch.ID.String())
	if tErr := grpc.SetTrailer(ctx, md); tErr != nil {
		s.log.WithError(tErr).Debug("failed to set trailer")
	}
	return status.Errorf(codes.Aborted, "delete batch stopped, resume with %s: %v", batch.ID, err)
}

// =============================================================================
// 4. ListPending
// =============================================================================

func (s *ChunkService) ListPending(ctx context.Context, req *chunkrpc.ListPendingRequest) (*chunkrpc.ListPendingResponse, error) {
	if s.app.Journal == nil {
		return nil, status.Error(codes.FailedPrecondition, app.ErrJournalDisabled.Error())
	}
	batches, err := s.app.Journal.List(ctx, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &chunkrpc.ListPendingResponse{}
	for _, b := range batches {
		paths, err := b.PathList()
		if err != nil {
			return nil, status.Errorf(codes.Internal, "corrupted journal entry %s: %v", b.ID, err)
		}
		resp.Batches = append(resp.Batches, chunkrpc.PendingBatch{
			ID:        b.ID.String(),
			Paths:     paths,
			LastError: b.LastError,
			Attempts:  int32(b.Attempts),
		})
	}
	return resp, nil
}
