package domain

type CompressionResult struct {
	OriginalPath     string  `json:"originalPath"`
	CompressedPath   string  `json:"compressedPath"`
	OriginalSize     int64   `json:"originalSize"`
	CompressedSize   int64   `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	Format           Format  `json:"format"`
}

func NewCompressionResult(originalPath, compressedPath string, originalSize, compressedSize int64, format Format) CompressionResult {
	return CompressionResult{
		OriginalPath:     originalPath,
		CompressedPath:   compressedPath,
		OriginalSize:     originalSize,
		CompressedSize:   compressedSize,
		CompressionRatio: CompressionRatio(originalSize, compressedSize),
		Format:           format,
	}
}

// CompressionRatio is the percentage of bytes saved. It is negative when the
// output grew and 0 for an empty source.
func CompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return float64(originalSize-compressedSize) / float64(originalSize) * 100
}

func (r CompressionResult) BytesSaved() int64 {
	return r.OriginalSize - r.CompressedSize
}
