package persistence

import (
	"pixeld/internal/persistence/interfaces"
	"pixeld/internal/providers"
	"pixeld/internal/services"
	"pixeld/internal/structures"
	"sync"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	service     services.SessionServiceInterface
	fileManager *FileManager
	archive     interfaces.ArchiveInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting sessions: %s", err)
			return
		}
		s.logger.Infof(providers.TypeApp, "Persisted sessions to file %s", s.config.Persistence.FilePath)
	})

	s.cron.AddFunc(gron.Every(s.config.Session.SweepInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		evicted := s.service.Sweep(s.config.Session.TTL)
		if len(evicted) == 0 {
			return
		}
		for id, data := range evicted {
			s.archive.Evict(id, data)
		}
		if err := s.archive.Flush(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while archiving sessions: %s", err)
			return
		}
		s.logger.Infof(providers.TypeApp, "Archived %d idle sessions", len(evicted))
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	if err := s.archive.RestoreIndex(); err != nil {
		s.logger.Warnf(providers.TypeApp, "Archive index restore failed: %s", err)
	}
	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting sessions to file...")
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting sessions: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.SessionServiceInterface, fileManager *FileManager, archive interfaces.ArchiveInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		service:     service,
		fileManager: fileManager,
		archive:     archive,
	}
}
