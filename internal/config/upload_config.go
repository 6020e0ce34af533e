package config

type UploadConfig interface {
	GetImageMaxBytes() int64
	GetFileMaxBytes() int64
}

type Uploads struct{}

var _ UploadConfig = Uploads{}

func (Uploads) GetImageMaxBytes() int64 {
	return GetEnvInt64("UPLOAD_IMAGE_MAX_BYTES", 5<<20)
}

func (Uploads) GetFileMaxBytes() int64 {
	return GetEnvInt64("UPLOAD_FILE_MAX_BYTES", 10<<20)
}
