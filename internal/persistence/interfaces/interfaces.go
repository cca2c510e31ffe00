package interfaces

import "pixeld/internal/models"

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

type ArchiveInterface interface {
	Evict(id string, data *models.SessionData)
	Restore(id string) (*models.SessionData, bool)
	Flush() error
	RestoreIndex() error
	Close()
}
