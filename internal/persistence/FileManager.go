package persistence

import (
	"os"
	"pixeld/internal/models"
	"pixeld/internal/persistence/interfaces"
	"pixeld/internal/providers"
	"pixeld/internal/services"

	json "github.com/goccy/go-json"
)

type FileManager struct {
	service    services.SessionServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.SessionServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.service.GetSnapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var storage models.Storage
	if err := json.Unmarshal(decompressedData, &storage); err != nil {
		f.logger.Warnf(providers.TypeApp, "Snapshot unreadable, starting empty: %s", err)
		return err
	}
	if storage.Sessions == nil {
		f.logger.Warnf(providers.TypeApp, "Snapshot carries no sessions")
		return nil
	}
	if storage.Version < models.StorageVersion {
		// V1 snapshots predate the fired flag; sessions come back with the
		// gate open, which is the behavior of a fresh process lifetime.
		f.logger.Warnf(providers.TypeApp, "Migrating snapshot from version %d", storage.Version)
	}

	f.service.PutSnapshot(&storage)
	return nil
}
