package token

import (
	"strconv"
	"sync"

	"dergrid/native/common"
)

// memQuotaStore is an in-memory common.Store implementation backing the
// Token contract's rolling daily-transfer cap. It is deliberately simple:
// the Token contract itself owns persistence of its balances/allowances,
// so the quota counters live alongside them in the same process rather
// than behind a separate storage engine.
type memQuotaStore struct {
	mu   sync.Mutex
	data map[string]common.QuotaNow
}

func newMemQuotaStore() *memQuotaStore {
	return &memQuotaStore{data: make(map[string]common.QuotaNow)}
}

func quotaKey(module string, epoch uint64, addr []byte) string {
	return module + "|" + strconv.FormatUint(epoch, 10) + "|" + string(addr)
}

func (s *memQuotaStore) Load(module string, epoch uint64, addr []byte) (common.QuotaNow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[quotaKey(module, epoch, addr)]
	return v, ok, nil
}

func (s *memQuotaStore) Save(module string, epoch uint64, addr []byte, counters common.QuotaNow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[quotaKey(module, epoch, addr)] = counters
	return nil
}
