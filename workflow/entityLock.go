package workflow

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// AcquireEntityLock serializes ledger recomputation per entity across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the ledger transaction.
func AcquireEntityLock(tx *gorm.DB, entity string) error {
	lockName := fmt.Sprintf("recon:%s", entity)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire recompute lock for entity=%s", entity)
	}
	return nil
}

func ReleaseEntityLock(tx *gorm.DB, entity string) {
	lockName := fmt.Sprintf("recon:%s", entity)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// In-process serialization for the same entity. The advisory lock above
// is the cross-instance guarantee; this map keeps goroutines in one
// process from queueing on the database.
var (
	entityMutexMap = make(map[string]*sync.Mutex)
	globalMutex    = &sync.Mutex{}
)

// entityMutex gets or creates the mutex for the given entity. Callers
// Lock/Unlock it around the whole per-entity recompute.
func entityMutex(entity string) *sync.Mutex {
	globalMutex.Lock()
	mutex, exists := entityMutexMap[entity]
	if !exists {
		mutex = &sync.Mutex{}
		entityMutexMap[entity] = mutex
	}
	globalMutex.Unlock()
	return mutex
}
