package mtproto

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/gotd/td/session"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

type fakeSettings struct {
	values map[string]string
	gets   int
	sets   int
	getErr error
	setErr error
}

func (f *fakeSettings) GetSetting(_ context.Context, key string) (string, error) {
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeSettings) SetSetting(_ context.Context, key, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func newSession(repo *fakeSettings) *SettingsSession {
	return &SettingsSession{Repo: repo, Log: log.New(io.Discard, "", 0)}
}

func TestSessionLoadOnce(t *testing.T) {
	repo := &fakeSettings{values: map[string]string{SessionKey: `{"Version":1}`}}
	s := newSession(repo)

	for i := 0; i < 3; i++ {
		data, err := s.LoadSession(context.Background())
		if err != nil {
			t.Fatalf("LoadSession: %v", err)
		}
		if string(data) != `{"Version":1}` {
			t.Fatalf("LoadSession = %q", data)
		}
	}
	if repo.gets != 1 {
		t.Errorf("store reads = %d, want 1", repo.gets)
	}
}

func TestSessionMissing(t *testing.T) {
	s := newSession(&fakeSettings{values: map[string]string{}})
	if _, err := s.LoadSession(context.Background()); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("LoadSession error = %v, want session.ErrNotFound", err)
	}
}

func TestSessionLoadErrorStartsFresh(t *testing.T) {
	s := newSession(&fakeSettings{values: map[string]string{}, getErr: errors.New("db down")})
	if _, err := s.LoadSession(context.Background()); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("LoadSession error = %v, want session.ErrNotFound", err)
	}
}

func TestSessionStoreOnlyOnChange(t *testing.T) {
	repo := &fakeSettings{values: map[string]string{SessionKey: "a"}}
	s := newSession(repo)
	ctx := context.Background()

	if _, err := s.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if err := s.StoreSession(ctx, []byte("a")); err != nil {
		t.Fatalf("StoreSession same: %v", err)
	}
	if repo.sets != 0 {
		t.Fatalf("unchanged session written %d times", repo.sets)
	}

	if err := s.StoreSession(ctx, []byte("b")); err != nil {
		t.Fatalf("StoreSession new: %v", err)
	}
	if err := s.StoreSession(ctx, []byte("b")); err != nil {
		t.Fatalf("StoreSession repeat: %v", err)
	}
	if repo.sets != 1 || repo.values[SessionKey] != "b" {
		t.Errorf("sets = %d value = %q, want 1 and b", repo.sets, repo.values[SessionKey])
	}

	data, err := s.LoadSession(ctx)
	if err != nil || string(data) != "b" {
		t.Errorf("LoadSession after store = %q, %v", data, err)
	}
}

func TestSessionStoreFailureIsNotFatal(t *testing.T) {
	repo := &fakeSettings{values: map[string]string{}, setErr: errors.New("db down")}
	s := newSession(repo)
	if err := s.StoreSession(context.Background(), []byte("x")); err != nil {
		t.Fatalf("StoreSession error = %v, want nil", err)
	}
	repo.setErr = nil
	if err := s.StoreSession(context.Background(), []byte("x")); err != nil {
		t.Fatalf("StoreSession retry: %v", err)
	}
	if repo.values[SessionKey] != "x" {
		t.Errorf("stored value = %q after retry", repo.values[SessionKey])
	}
}
