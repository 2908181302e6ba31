package directors

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ServiceManager holds one CollectionService per registered document
// type, keyed by type name.
type ServiceManager struct {
	services map[string]*CollectionService
	logger   *zap.SugaredLogger
}

// Private instance and mutex for thread safety
var (
	instance *ServiceManager
	once     sync.Once
	mu       sync.RWMutex
)

// GetServiceManager returns the singleton instance of ServiceManager
func GetServiceManager() *ServiceManager {
	mu.RLock()
	defer mu.RUnlock()

	if instance == nil {
		// If someone tries to get the instance before initialization,
		// return a basic empty instance
		return &ServiceManager{services: make(map[string]*CollectionService)}
	}
	return instance
}

// InitServiceManager initializes the ServiceManager singleton
func InitServiceManager(logger *zap.SugaredLogger) *ServiceManager {
	// Use sync.Once to ensure this only happens one time
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()

		instance = &ServiceManager{
			services: make(map[string]*CollectionService),
			logger:   logger,
		}

		if logger != nil {
			logger.Info("ServiceManager singleton initialized")
		}
	})

	return instance
}

// Register adds a service for a document type.
func (m *ServiceManager) Register(svc *CollectionService) {
	mu.Lock()
	defer mu.Unlock()
	m.services[svc.TypeName()] = svc
}

// Service returns the service for a type name.
func (m *ServiceManager) Service(typeName string) (*CollectionService, error) {
	mu.RLock()
	defer mu.RUnlock()
	svc, ok := m.services[typeName]
	if !ok {
		return nil, fmt.Errorf("no service registered for type %q", typeName)
	}
	return svc, nil
}

// ResetServiceManager is useful for testing - it resets the singleton
func ResetServiceManager() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}
