package mtproto

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gotd/td/session"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// SessionKey is the settings key holding the MTProto session.
const SessionKey = "mtproto_session"

// SettingsSession implements session.Storage over the settings table.
// The stored value is read once; writes happen only when the value changes.
type SettingsSession struct {
	Repo domain.SettingsRepo
	Log  *log.Logger

	mu     sync.Mutex
	loaded bool
	last   string
}

var _ session.Storage = (*SettingsSession)(nil)

func (s *SettingsSession) LoadSession(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		v, err := s.Repo.GetSetting(ctx, SessionKey)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.Log.Println("no saved session, a new one will be created")
		case err != nil:
			// a fresh login still works, so this is not fatal
			s.Log.Printf("failed to load session: %v", err)
		default:
			s.last = v
			s.Log.Println("loaded saved session from database")
		}
		s.loaded = true
	}

	if s.last == "" {
		return nil, session.ErrNotFound
	}
	return []byte(s.last), nil
}

func (s *SettingsSession) StoreSession(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := string(data)
	if v == s.last {
		return nil
	}
	if err := s.Repo.SetSetting(ctx, SessionKey, v); err != nil {
		// keep the in-memory copy; the next change retries the write
		s.Log.Printf("failed to save session: %v", err)
		return nil
	}
	s.last = v
	s.Log.Println("saved session to database")
	return nil
}
