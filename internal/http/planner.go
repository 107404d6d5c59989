package http

const (
	largeArtifact  = 100 * MiB
	mediumArtifact = 50 * MiB

	largeChunkSize  = 4 * MiB
	mediumChunkSize = 3 * MiB

	largeMaxThreads  = 32
	mediumMaxThreads = 24
)

// Policy is the base concurrency and chunk size before tiering.
type Policy struct {
	Threads   int
	ChunkSize int64
}

// DefaultPolicy is 16 threads over 2MiB chunks.
var DefaultPolicy = Policy{Threads: DefaultThreads, ChunkSize: DefaultChunkSize}

// Plan is the chunk layout of one artifact.
type Plan struct {
	Chunks    []ChunkTask
	Threads   int
	ChunkSize int64
	TotalSize int64
}

// Tier scales the base policy for larger artifacts.
func Tier(totalSize int64, base Policy) Policy {
	base = base.normalized()

	switch {
	case totalSize > largeArtifact:
		return Policy{Threads: min(largeMaxThreads, base.Threads*2), ChunkSize: largeChunkSize}
	case totalSize > mediumArtifact:
		return Policy{Threads: min(mediumMaxThreads, base.Threads*3/2), ChunkSize: mediumChunkSize}
	default:
		return base
	}
}

// ShouldChunk reports whether the artifact goes through the ranged pipeline.
// The comparison uses the tiered chunk size.
func ShouldChunk(totalSize int64, supportsRange bool, base Policy) bool {
	if !supportsRange || totalSize <= 0 {
		return false
	}

	return totalSize >= Tier(totalSize, base).ChunkSize*2
}

// PlanChunks splits [0, totalSize) into contiguous inclusive ranges, left to right.
func PlanChunks(totalSize int64, base Policy) Plan {
	policy := Tier(totalSize, base)

	plan := Plan{
		Threads:   policy.Threads,
		ChunkSize: policy.ChunkSize,
		TotalSize: totalSize,
	}

	if totalSize <= 0 {
		return plan
	}

	plan.Chunks = make([]ChunkTask, 0, (totalSize+policy.ChunkSize-1)/policy.ChunkSize)

	for start, index := int64(0), 0; start < totalSize; index++ {
		end := min(start+policy.ChunkSize-1, totalSize-1)
		plan.Chunks = append(plan.Chunks, ChunkTask{Index: index, Start: start, End: end})
		start = end + 1
	}

	return plan
}

func (p Policy) normalized() Policy {
	if p.Threads <= 0 {
		p.Threads = DefaultThreads
	}

	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}

	return p
}
