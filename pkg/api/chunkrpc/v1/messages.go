package chunkrpc

// FrameSize 是 GetChunk 每个数据帧的最大字节数
const FrameSize = 64 * 1024

// Trailer keys，DeleteChunks / ResumeDeletes 失败时携带
const (
	TrailerBatchID = "chunk-batch-id"
	TrailerDeleted = "chunk-deleted"
)

type GetChunkRequest struct {
	Path string `cbor:"1,keyasint"`
}

// ChunkHeader 只出现在 GetChunk 的第一帧
type ChunkHeader struct {
	Size int64 `cbor:"1,keyasint"`
}

// GetChunkResponse 第一帧携带 Header，之后每帧携带 Data
type GetChunkResponse struct {
	Header *ChunkHeader `cbor:"1,keyasint,omitempty"`
	Data   []byte       `cbor:"2,keyasint,omitempty"`
}

type AddChunkRequest struct {
	Content []byte `cbor:"1,keyasint"`
	Folder  string `cbor:"2,keyasint,omitempty"`
}

type AddChunkResponse struct {
	Path string `cbor:"1,keyasint"`
}

type DeleteChunksRequest struct {
	Paths []string `cbor:"1,keyasint"`
}

type DeleteChunksResponse struct {
	Deleted int64 `cbor:"1,keyasint"`
}

type ResumeDeletesRequest struct {
	BatchID string `cbor:"1,keyasint"`
}

type ListPendingRequest struct {
	Limit int32 `cbor:"1,keyasint,omitempty"`
}

type PendingBatch struct {
	ID        string   `cbor:"1,keyasint"`
	Paths     []string `cbor:"2,keyasint"`
	LastError string   `cbor:"3,keyasint,omitempty"`
	Attempts  int32    `cbor:"4,keyasint"`
}

type ListPendingResponse struct {
	Batches []PendingBatch `cbor:"1,keyasint"`
}
