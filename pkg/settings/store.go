package settings

import (
	"github.com/edgevision/edgevisiond/pkg/settings/dbconn"
	"github.com/edgevision/edgevisiond/pkg/settings/repos"
)

const lastHostKey = "viewer.last_host"

// Store holds small bits of persisted viewer state, currently just
// the last stream host a viewer connected to.
type Store struct {
	settings repos.SettingRepository
}

func NewStore(db dbconn.GormWrapper) *Store {
	return &Store{settings: repos.SettingRepository{DB: db}}
}

func (s *Store) LastHost() (string, error) {
	return s.settings.Get(lastHostKey)
}

func (s *Store) SaveLastHost(host string) error {
	return s.settings.Set(lastHostKey, host)
}
